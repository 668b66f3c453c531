package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for supplier orders
type Repository interface {
	// Save creates or updates a supplier order
	Save(ctx context.Context, so *SupplierOrder) error

	// FindByID finds a supplier order by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SupplierOrder, error)

	// FindByOrder finds all supplier orders spawned by an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]SupplierOrder, error)

	// FindOpenByOrderAndSupplier finds the single non-terminal supplier order
	// for an (order, supplier) pair, or ErrSupplierOrderNotFound
	FindOpenByOrderAndSupplier(ctx context.Context, orderID, supplierID uuid.UUID) (*SupplierOrder, error)

	// FindByNativeID finds a supplier order by the supplier-assigned ID
	FindByNativeID(ctx context.Context, supplierID uuid.UUID, supplierNativeID string) (*SupplierOrder, error)

	// FindStuck finds supplier orders sitting in the given states since
	// before the cutoff. The periodic sweep re-drives them.
	FindStuck(ctx context.Context, states []State, updatedBefore time.Time, limit int) ([]SupplierOrder, error)
}

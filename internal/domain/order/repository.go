package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter defines query criteria for listing orders
type Filter struct {
	// PaymentStatus filters by payment status (optional)
	PaymentStatus *PaymentStatus
	// FulfillmentStatus filters by fulfillment status (optional)
	FulfillmentStatus *FulfillmentStatus
	// Page number (1-indexed)
	Page int
	// PageSize is the number of orders per page
	PageSize int
}

// Repository defines the persistence interface for canonical orders
type Repository interface {
	// Save creates or updates an order
	Save(ctx context.Context, o *Order) error

	// FindByID finds an order by its internal ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID finds an order by its platform-native ID within a store.
	// Returns ErrOrderNotFound when absent.
	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalOrderID string) (*Order, error)

	// FindByStore lists orders for a store with filtering
	FindByStore(ctx context.Context, storeID uuid.UUID, filter Filter) ([]Order, int64, error)

	// CountForStoreSince counts orders created for a store at or after the
	// given instant. Used for monthly quota evaluation; the count only needs
	// to be recent, not strongly consistent.
	CountForStoreSince(ctx context.Context, storeID uuid.UUID, since time.Time) (int64, error)
}

package fulfillment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrSupplierNotRegistered is returned when no adapter serves a supplier code
	ErrSupplierNotRegistered = errors.New("fulfillment: supplier adapter not registered")
	// ErrUnknownSupplier is returned when a supplier ID resolves to nothing
	ErrUnknownSupplier = errors.New("fulfillment: unknown supplier")
)

// SupplierCode identifies which upstream supplier an adapter talks to
type SupplierCode string

const (
	// SupplierCodeAliExpress represents AliExpress dropshipping
	SupplierCodeAliExpress SupplierCode = "ALIEXPRESS"
	// SupplierCodeCJDropshipping represents CJDropshipping
	SupplierCodeCJDropshipping SupplierCode = "CJDROPSHIPPING"
	// SupplierCodeSpocket represents Spocket
	SupplierCodeSpocket SupplierCode = "SPOCKET"
)

// IsValid returns true if the supplier code is valid
func (c SupplierCode) IsValid() bool {
	switch c {
	case SupplierCodeAliExpress, SupplierCodeCJDropshipping, SupplierCodeSpocket:
		return true
	default:
		return false
	}
}

// String returns the string representation of SupplierCode
func (c SupplierCode) String() string {
	return string(c)
}

// Supplier is a directory entry for an upstream supplier
type Supplier struct {
	ID   uuid.UUID
	Code SupplierCode
	Name string
}

// SupplierDirectory resolves supplier IDs referenced by order line items
type SupplierDirectory interface {
	// Resolve returns the supplier for an ID, or ErrUnknownSupplier
	Resolve(id uuid.UUID) (*Supplier, error)
}

// PlacementItem is one line of a supplier placement request
type PlacementItem struct {
	ProductRef string
	SKU        string
	Quantity   int
	UnitCost   decimal.Decimal
}

// PlacementDraft is the request handed to a supplier adapter to place an order
type PlacementDraft struct {
	// Reference is our supplier order ID, passed for supplier-side idempotency
	Reference uuid.UUID
	Items     []PlacementItem
	// Shipping destination
	RecipientName string
	AddressL1     string
	AddressL2     string
	City          string
	Region        string
	PostalCode    string
	Country       string
	Phone         string
}

// Placement is a successful placement result
type Placement struct {
	// SupplierNativeID is the order ID assigned by the supplier
	SupplierNativeID string
	// Cost is the amount charged by the supplier, if reported at placement
	Cost decimal.Decimal
}

// StatusReport is a supplier-side fulfillment status snapshot
type StatusReport struct {
	State          State
	TrackingNumber string
}

// SupplierAdapter is the port each supplier integration must satisfy.
// Implementations return typed errors from the shared taxonomy so the
// dispatcher can distinguish retryable from terminal failures.
type SupplierAdapter interface {
	// SupplierCode returns the supplier this adapter handles
	SupplierCode() SupplierCode

	// PlaceOrder places an order with the supplier
	PlaceOrder(ctx context.Context, draft *PlacementDraft) (*Placement, error)

	// GetStatus retrieves the supplier-side fulfillment status
	GetStatus(ctx context.Context, supplierNativeID string) (*StatusReport, error)

	// Cancel requests cancellation of a supplier order. The bool reports
	// whether the supplier accepted the cancellation; local state never
	// waits on it.
	Cancel(ctx context.Context, supplierNativeID string) (bool, error)
}

// SupplierRegistry provides access to the configured supplier adapters
type SupplierRegistry interface {
	// GetAdapter returns the adapter for a supplier code
	GetAdapter(code SupplierCode) (SupplierAdapter, error)

	// ListAdapters returns all registered adapters
	ListAdapters() []SupplierAdapter
}

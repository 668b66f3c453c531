package order

import (
	"errors"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound is returned when an order cannot be located
	ErrOrderNotFound = errors.New("order: order not found")
	// ErrEmptyExternalID is returned when a draft carries no platform-native order ID
	ErrEmptyExternalID = errors.New("order: external order ID is required")
	// ErrNoLineItems is returned when a draft carries no line items
	ErrNoLineItems = errors.New("order: at least one line item is required")
	// ErrStaleRevision is returned when an incoming revision is not newer
	// than the one that produced the stored state
	ErrStaleRevision = errors.New("order: stale provider revision discarded")
)

// PaymentStatus represents the payment state of a canonical order
type PaymentStatus string

const (
	// PaymentStatusPending indicates payment has not been confirmed
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid indicates payment was confirmed by the platform
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusRefunded indicates the payment was refunded
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	// PaymentStatusCancelled indicates the order was cancelled before payment
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid returns true if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// FulfillmentStatus represents the fulfillment state of a canonical order
type FulfillmentStatus string

const (
	// FulfillmentStatusUnfulfilled indicates no supplier order has been placed yet
	FulfillmentStatusUnfulfilled FulfillmentStatus = "UNFULFILLED"
	// FulfillmentStatusDispatching indicates supplier orders are being placed
	FulfillmentStatusDispatching FulfillmentStatus = "DISPATCHING"
	// FulfillmentStatusPartial indicates some but not all supplier orders shipped
	FulfillmentStatusPartial FulfillmentStatus = "PARTIAL"
	// FulfillmentStatusFulfilled indicates every supplier order was delivered
	FulfillmentStatusFulfilled FulfillmentStatus = "FULFILLED"
	// FulfillmentStatusQuotaExceeded indicates the order was recorded over
	// quota; dispatch is suppressed until the plan allows it again
	FulfillmentStatusQuotaExceeded FulfillmentStatus = "QUOTA_EXCEEDED"
)

// IsValid returns true if the fulfillment status is valid
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusDispatching,
		FulfillmentStatusPartial, FulfillmentStatusFulfilled, FulfillmentStatusQuotaExceeded:
		return true
	default:
		return false
	}
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// CustomerContact holds the buyer's contact and shipping details
type CustomerContact struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	AddressL1  string `json:"address_line1"`
	AddressL2  string `json:"address_line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// LineItem is one purchased position of an order. The sequence of line
// items is ordered and preserved across revisions.
type LineItem struct {
	ProductRef string          `json:"product_ref"`
	SKU        string          `json:"sku"`
	Title      string          `json:"title"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity * unit price
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is the canonical, platform-agnostic representation of a purchase.
// (StoreID, ExternalOrderID) is unique; Version only ever increases.
type Order struct {
	shared.BaseAggregateRoot
	StoreID           uuid.UUID
	ExternalOrderID   string
	Customer          CustomerContact
	Items             []LineItem
	Total             valueobject.Money
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	// ProviderRevision is the platform-side revision marker that produced
	// the current state. Incoming payloads with a revision that is not
	// strictly newer are discarded as stale, regardless of arrival order.
	ProviderRevision int64
}

// Draft is the canonical pre-order shape produced by a storefront adapter
type Draft struct {
	ExternalOrderID  string
	ProviderRevision int64
	Customer         CustomerContact
	Items            []LineItem
	Total            valueobject.Money
	PaymentStatus    PaymentStatus
}

// Validate checks that the draft is complete enough to become an order
func (d *Draft) Validate() error {
	if d.ExternalOrderID == "" {
		return ErrEmptyExternalID
	}
	if len(d.Items) == 0 {
		return ErrNoLineItems
	}
	if !d.PaymentStatus.IsValid() {
		return shared.NewValidationError("unknown payment status " + string(d.PaymentStatus))
	}
	for _, item := range d.Items {
		if item.Quantity <= 0 {
			return shared.NewValidationError("line item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewValidationError("line item unit price must not be negative")
		}
	}
	return nil
}

// NewOrderFromDraft creates a canonical order at version 1 from an adapter draft
func NewOrderFromDraft(storeID uuid.UUID, draft *Draft) (*Order, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           storeID,
		ExternalOrderID:   draft.ExternalOrderID,
		Customer:          draft.Customer,
		Items:             append([]LineItem(nil), draft.Items...),
		Total:             draft.Total,
		PaymentStatus:     draft.PaymentStatus,
		FulfillmentStatus: FulfillmentStatusUnfulfilled,
		ProviderRevision:  draft.ProviderRevision,
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	if o.PaymentStatus == PaymentStatusPaid {
		o.AddDomainEvent(NewOrderPaidEvent(o))
	}
	return o, nil
}

// ApplyRevision applies an incoming draft if its provider revision is
// strictly newer than the revision that produced the current state.
// Stale revisions return ErrStaleRevision and leave the order untouched;
// last-writer-wins by arrival time is deliberately not used.
func (o *Order) ApplyRevision(draft *Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if draft.ProviderRevision <= o.ProviderRevision {
		return ErrStaleRevision
	}

	wasPaid := o.PaymentStatus == PaymentStatusPaid

	o.Customer = draft.Customer
	o.Items = append([]LineItem(nil), draft.Items...)
	o.Total = draft.Total
	o.PaymentStatus = draft.PaymentStatus
	o.ProviderRevision = draft.ProviderRevision
	o.IncrementVersion()
	o.Touch()

	o.AddDomainEvent(NewOrderUpdatedEvent(o))
	if !wasPaid && o.PaymentStatus == PaymentStatusPaid {
		o.AddDomainEvent(NewOrderPaidEvent(o))
	}
	return nil
}

// MarkQuotaExceeded flags the order as recorded over the plan ceiling.
// The order data is kept; only dispatch is suppressed.
func (o *Order) MarkQuotaExceeded() {
	o.FulfillmentStatus = FulfillmentStatusQuotaExceeded
	o.IncrementVersion()
	o.Touch()
}

// ClearQuotaExceeded re-enables dispatch after an upgrade or period rollover
func (o *Order) ClearQuotaExceeded() {
	if o.FulfillmentStatus == FulfillmentStatusQuotaExceeded {
		o.FulfillmentStatus = FulfillmentStatusUnfulfilled
		o.IncrementVersion()
		o.Touch()
	}
}

// CanDispatch returns true if fulfillment dispatch is allowed for the order
func (o *Order) CanDispatch() bool {
	if o.FulfillmentStatus == FulfillmentStatusQuotaExceeded {
		return false
	}
	return o.PaymentStatus == PaymentStatusPaid
}

// SetFulfillmentStatus updates the order-level fulfillment projection
func (o *Order) SetFulfillmentStatus(status FulfillmentStatus) error {
	if !status.IsValid() {
		return shared.ErrInvalidState
	}
	o.FulfillmentStatus = status
	o.IncrementVersion()
	o.Touch()
	return nil
}

// SuppliersReferenced returns the distinct supplier IDs across line items,
// in first-appearance order
func (o *Order) SuppliersReferenced() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	out := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SupplierID]; ok {
			continue
		}
		seen[item.SupplierID] = struct{}{}
		out = append(out, item.SupplierID)
	}
	return out
}

// ItemsForSupplier returns the line items sourced from one supplier
func (o *Order) ItemsForSupplier(supplierID uuid.UUID) []LineItem {
	var out []LineItem
	for _, item := range o.Items {
		if item.SupplierID == supplierID {
			out = append(out, item)
		}
	}
	return out
}

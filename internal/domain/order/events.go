package order

import (
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the order aggregate
const (
	EventTypeOrderCreated = "order.created"
	EventTypeOrderUpdated = "order.updated"
	EventTypeOrderPaid    = "order.paid"
)

// OrderCreatedEvent is emitted when a canonical order is first recorded
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	ExternalOrderID string          `json:"external_order_id"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, "Order", o.ID, o.StoreID),
		ExternalOrderID: o.ExternalOrderID,
		Total:           o.Total.Amount(),
		Currency:        string(o.Total.Currency()),
	}
}

// OrderUpdatedEvent is emitted when a newer provider revision is applied
type OrderUpdatedEvent struct {
	shared.BaseDomainEvent
	ExternalOrderID  string `json:"external_order_id"`
	ProviderRevision int64  `json:"provider_revision"`
	Version          int    `json:"version"`
}

// NewOrderUpdatedEvent creates an OrderUpdatedEvent
func NewOrderUpdatedEvent(o *Order) *OrderUpdatedEvent {
	return &OrderUpdatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrderUpdated, "Order", o.ID, o.StoreID),
		ExternalOrderID:  o.ExternalOrderID,
		ProviderRevision: o.ProviderRevision,
		Version:          o.Version,
	}
}

// OrderPaidEvent is emitted the first time an order's payment status
// transitions to paid. The settlement ledger records the sale from it.
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	ExternalOrderID string          `json:"external_order_id"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
}

// NewOrderPaidEvent creates an OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, "Order", o.ID, o.StoreID),
		ExternalOrderID: o.ExternalOrderID,
		Total:           o.Total.Amount(),
		Currency:        string(o.Total.Currency()),
	}
}

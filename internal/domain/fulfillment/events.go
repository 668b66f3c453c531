package fulfillment

import (
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the supplier order aggregate
const (
	EventTypeSupplierOrderCreated   = "supplier_order.created"
	EventTypeSupplierOrderPlaced    = "supplier_order.placed"
	EventTypeSupplierOrderShipped   = "supplier_order.shipped"
	EventTypeSupplierOrderDelivered = "supplier_order.delivered"
	EventTypeSupplierOrderFailed    = "supplier_order.failed"
)

// SupplierOrderCreatedEvent is emitted when a supplier order is created
type SupplierOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// NewSupplierOrderCreatedEvent creates a SupplierOrderCreatedEvent
func NewSupplierOrderCreatedEvent(so *SupplierOrder) *SupplierOrderCreatedEvent {
	return &SupplierOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderCreated, "SupplierOrder", so.ID, so.StoreID),
		OrderID:         so.OrderID,
		SupplierID:      so.SupplierID,
	}
}

// SupplierOrderPlacedEvent is emitted when the supplier accepts a placement
type SupplierOrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID `json:"order_id"`
	SupplierID       uuid.UUID `json:"supplier_id"`
	SupplierNativeID string    `json:"supplier_native_id"`
}

// NewSupplierOrderPlacedEvent creates a SupplierOrderPlacedEvent
func NewSupplierOrderPlacedEvent(so *SupplierOrder) *SupplierOrderPlacedEvent {
	return &SupplierOrderPlacedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSupplierOrderPlaced, "SupplierOrder", so.ID, so.StoreID),
		OrderID:          so.OrderID,
		SupplierID:       so.SupplierID,
		SupplierNativeID: so.SupplierNativeID,
	}
}

// SupplierOrderShippedEvent is emitted on the shipped transition
type SupplierOrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
}

// NewSupplierOrderShippedEvent creates a SupplierOrderShippedEvent
func NewSupplierOrderShippedEvent(so *SupplierOrder) *SupplierOrderShippedEvent {
	return &SupplierOrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderShipped, "SupplierOrder", so.ID, so.StoreID),
		OrderID:         so.OrderID,
		TrackingNumber:  so.TrackingNumber,
	}
}

// SupplierOrderDeliveredEvent is emitted on the delivered transition
type SupplierOrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewSupplierOrderDeliveredEvent creates a SupplierOrderDeliveredEvent
func NewSupplierOrderDeliveredEvent(so *SupplierOrder) *SupplierOrderDeliveredEvent {
	return &SupplierOrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderDelivered, "SupplierOrder", so.ID, so.StoreID),
		OrderID:         so.OrderID,
	}
}

// SupplierOrderFailedEvent is emitted when a supplier order fails or is cancelled
type SupplierOrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID `json:"order_id"`
	LastError string    `json:"last_error"`
}

// NewSupplierOrderFailedEvent creates a SupplierOrderFailedEvent
func NewSupplierOrderFailedEvent(so *SupplierOrder) *SupplierOrderFailedEvent {
	return &SupplierOrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderFailed, "SupplierOrder", so.ID, so.StoreID),
		OrderID:         so.OrderID,
		LastError:       so.LastError,
	}
}

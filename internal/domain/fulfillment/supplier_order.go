package fulfillment

import (
	"errors"
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrSupplierOrderNotFound is returned when a supplier order cannot be located
	ErrSupplierOrderNotFound = errors.New("fulfillment: supplier order not found")
	// ErrInvalidTransition is returned on a disallowed state transition
	ErrInvalidTransition = errors.New("fulfillment: invalid state transition")
	// ErrAlreadyTerminal is returned when an operation targets a terminal supplier order
	ErrAlreadyTerminal = errors.New("fulfillment: supplier order is terminal")
	// ErrNotFailed is returned when retry is requested for a non-failed supplier order
	ErrNotFailed = errors.New("fulfillment: only failed supplier orders can be retried")
)

// State represents the lifecycle state of a supplier order
type State string

const (
	// StatePending indicates the supplier order is waiting to be placed
	StatePending State = "PENDING"
	// StatePlacing indicates a placement attempt is in flight
	StatePlacing State = "PLACING"
	// StatePlaced indicates the supplier accepted the order
	StatePlaced State = "PLACED"
	// StateShipped indicates the supplier shipped the goods
	StateShipped State = "SHIPPED"
	// StateDelivered indicates the goods were delivered (terminal)
	StateDelivered State = "DELIVERED"
	// StateFailed indicates placement or fulfillment failed (terminal,
	// manually retryable)
	StateFailed State = "FAILED"
)

// IsValid returns true if the state is valid
func (s State) IsValid() bool {
	switch s {
	case StatePending, StatePlacing, StatePlaced, StateShipped, StateDelivered, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for terminal states
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateFailed
}

// CanTransitionTo returns true if the transition s -> to is allowed
func (s State) CanTransitionTo(to State) bool {
	switch s {
	case StatePending:
		return to == StatePlacing || to == StateFailed
	case StatePlacing:
		return to == StatePlaced || to == StateFailed
	case StatePlaced:
		return to == StateShipped || to == StateFailed
	case StateShipped:
		return to == StateDelivered || to == StateFailed
	case StateFailed:
		// manual retry re-enters the pipeline
		return to == StatePending
	default:
		return false
	}
}

// SupplierOrder is the purchase placed with an upstream supplier to fulfill
// one storefront order's line items. At most one non-terminal supplier order
// exists per (order, supplier) pair.
type SupplierOrder struct {
	shared.BaseAggregateRoot
	OrderID          uuid.UUID
	StoreID          uuid.UUID
	SupplierID       uuid.UUID
	SupplierNativeID string
	State            State
	TrackingNumber   string
	Cost             decimal.Decimal
	AttemptCount     int
	LastError        string
	PlacedAt         *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
}

// NewSupplierOrder creates a pending supplier order for one supplier of an order
func NewSupplierOrder(orderID, storeID, supplierID uuid.UUID, cost decimal.Decimal) *SupplierOrder {
	so := &SupplierOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		StoreID:           storeID,
		SupplierID:        supplierID,
		State:             StatePending,
		Cost:              cost,
	}
	so.AddDomainEvent(NewSupplierOrderCreatedEvent(so))
	return so
}

// transition moves the supplier order to a new state or fails
func (so *SupplierOrder) transition(to State) error {
	if !so.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, so.State, to)
	}
	so.State = to
	so.IncrementVersion()
	so.Touch()
	return nil
}

// BeginPlacement transitions Pending -> Placing and counts the attempt.
// Callers must hold the (order, supplier) advisory lock.
func (so *SupplierOrder) BeginPlacement() error {
	if err := so.transition(StatePlacing); err != nil {
		return err
	}
	so.AttemptCount++
	return nil
}

// MarkPlaced records the supplier-side order ID and transitions to Placed
func (so *SupplierOrder) MarkPlaced(supplierNativeID string) error {
	if supplierNativeID == "" {
		return shared.NewValidationError("supplier native ID is required")
	}
	if err := so.transition(StatePlaced); err != nil {
		return err
	}
	now := time.Now()
	so.SupplierNativeID = supplierNativeID
	so.PlacedAt = &now
	so.LastError = ""
	so.AddDomainEvent(NewSupplierOrderPlacedEvent(so))
	return nil
}

// MarkShipped records the tracking number and transitions to Shipped
func (so *SupplierOrder) MarkShipped(trackingNumber string) error {
	if err := so.transition(StateShipped); err != nil {
		return err
	}
	now := time.Now()
	so.TrackingNumber = trackingNumber
	so.ShippedAt = &now
	so.AddDomainEvent(NewSupplierOrderShippedEvent(so))
	return nil
}

// MarkDelivered transitions to Delivered
func (so *SupplierOrder) MarkDelivered() error {
	if err := so.transition(StateDelivered); err != nil {
		return err
	}
	now := time.Now()
	so.DeliveredAt = &now
	so.AddDomainEvent(NewSupplierOrderDeliveredEvent(so))
	return nil
}

// MarkFailed records the normalized error and transitions to Failed
func (so *SupplierOrder) MarkFailed(reason string) error {
	if err := so.transition(StateFailed); err != nil {
		return err
	}
	so.LastError = reason
	so.AddDomainEvent(NewSupplierOrderFailedEvent(so))
	return nil
}

// CancelLocally forces a non-terminal supplier order to Failed. The local
// transition always succeeds; the remote cancel call is best-effort and
// must never block this.
func (so *SupplierOrder) CancelLocally(reason string) error {
	if so.State.IsTerminal() {
		return ErrAlreadyTerminal
	}
	so.State = StateFailed
	so.LastError = reason
	so.IncrementVersion()
	so.Touch()
	so.AddDomainEvent(NewSupplierOrderFailedEvent(so))
	return nil
}

// Retry re-enters a failed supplier order into the pipeline
func (so *SupplierOrder) Retry() error {
	if so.State != StateFailed {
		return ErrNotFailed
	}
	if err := so.transition(StatePending); err != nil {
		return err
	}
	so.LastError = ""
	return nil
}

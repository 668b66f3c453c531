package store

import (
	"github.com/dropship/backend/internal/domain/shared"
)

// Event types for the store aggregate
const (
	EventTypeStoreConnected    = "store.connected"
	EventTypeStoreDisconnected = "store.disconnected"
)

// StoreConnectedEvent is emitted when a store is connected
type StoreConnectedEvent struct {
	shared.BaseDomainEvent
	Platform Platform `json:"platform"`
	PlanTier PlanTier `json:"plan_tier"`
}

// NewStoreConnectedEvent creates a StoreConnectedEvent
func NewStoreConnectedEvent(s *Store) *StoreConnectedEvent {
	return &StoreConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStoreConnected, "Store", s.ID, s.ID),
		Platform:        s.Platform,
		PlanTier:        s.PlanTier,
	}
}

// StoreDisconnectedEvent is emitted when a store is disconnected
type StoreDisconnectedEvent struct {
	shared.BaseDomainEvent
	Platform Platform `json:"platform"`
}

// NewStoreDisconnectedEvent creates a StoreDisconnectedEvent
func NewStoreDisconnectedEvent(s *Store) *StoreDisconnectedEvent {
	return &StoreDisconnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStoreDisconnected, "Store", s.ID, s.ID),
		Platform:        s.Platform,
	}
}

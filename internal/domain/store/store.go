package store

import (
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	// ErrStoreNotFound is returned when a store cannot be located
	ErrStoreNotFound = errors.New("store: store not found")
	// ErrStoreSuspended is returned when an operation targets a suspended store
	ErrStoreSuspended = errors.New("store: store is suspended")
	// ErrStoreDisconnected is returned when an operation targets a disconnected store
	ErrStoreDisconnected = errors.New("store: store is disconnected")
	// ErrInvalidPlatform is returned when the platform code is not recognized
	ErrInvalidPlatform = errors.New("store: invalid platform")
	// ErrMissingCredentialsRef is returned when a store is connected without a credentials reference
	ErrMissingCredentialsRef = errors.New("store: credentials reference is required")
)

// Platform identifies the storefront platform a store runs on
type Platform string

const (
	// PlatformShopify represents Shopify storefronts
	PlatformShopify Platform = "SHOPIFY"
	// PlatformWooCommerce represents WooCommerce storefronts
	PlatformWooCommerce Platform = "WOOCOMMERCE"
	// PlatformEbay represents eBay storefronts
	PlatformEbay Platform = "EBAY"
)

// IsValid returns true if the platform is valid
func (p Platform) IsValid() bool {
	switch p {
	case PlatformShopify, PlatformWooCommerce, PlatformEbay:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// Status represents the lifecycle status of a connected store
type Status string

const (
	// StatusActive indicates the store is connected and operating normally
	StatusActive Status = "ACTIVE"
	// StatusSyncing indicates a synchronization run is in flight for the store
	StatusSyncing Status = "SYNCING"
	// StatusError indicates the last synchronization run failed
	StatusError Status = "ERROR"
	// StatusSuspended indicates the store is suspended by an operator or plan downgrade
	StatusSuspended Status = "SUSPENDED"
	// StatusDisconnected indicates the store was disconnected; it is retained
	// as a soft-deleted record so its order history stays queryable
	StatusDisconnected Status = "DISCONNECTED"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSyncing, StatusError, StatusSuspended, StatusDisconnected:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Store is a storefront connected by an account. It owns the canonical
// Orders synchronized from its platform.
type Store struct {
	shared.BaseAggregateRoot
	AccountID      uuid.UUID
	Name           string
	Platform       Platform
	CredentialsRef string
	PlanTier       PlanTier
	Status         Status
	DisconnectedAt *time.Time
}

// NewStore connects a new store for an account
func NewStore(accountID uuid.UUID, name string, platform Platform, credentialsRef string, tier PlanTier) (*Store, error) {
	if !platform.IsValid() {
		return nil, ErrInvalidPlatform
	}
	if credentialsRef == "" {
		return nil, ErrMissingCredentialsRef
	}
	if !tier.IsValid() {
		tier = PlanTierFree
	}
	s := &Store{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         accountID,
		Name:              name,
		Platform:          platform,
		CredentialsRef:    credentialsRef,
		PlanTier:          tier,
		Status:            StatusActive,
	}
	s.AddDomainEvent(NewStoreConnectedEvent(s))
	return s, nil
}

// IsOperational returns true if the store can accept sync and dispatch work
func (s *Store) IsOperational() bool {
	return s.Status == StatusActive || s.Status == StatusSyncing || s.Status == StatusError
}

// BeginSync marks the store as syncing
func (s *Store) BeginSync() error {
	if !s.IsOperational() {
		return ErrStoreDisconnected
	}
	s.Status = StatusSyncing
	s.IncrementVersion()
	s.Touch()
	return nil
}

// FinishSync records the outcome of a synchronization run
func (s *Store) FinishSync(succeeded bool) {
	if succeeded {
		s.Status = StatusActive
	} else {
		s.Status = StatusError
	}
	s.IncrementVersion()
	s.Touch()
}

// Suspend suspends the store
func (s *Store) Suspend() {
	s.Status = StatusSuspended
	s.IncrementVersion()
	s.Touch()
}

// Disconnect soft-deletes the store. Order history is preserved.
func (s *Store) Disconnect() error {
	if s.Status == StatusDisconnected {
		return ErrStoreDisconnected
	}
	now := time.Now()
	s.Status = StatusDisconnected
	s.DisconnectedAt = &now
	s.IncrementVersion()
	s.Touch()
	s.AddDomainEvent(NewStoreDisconnectedEvent(s))
	return nil
}

// ChangePlan moves the store to a different plan tier
func (s *Store) ChangePlan(tier PlanTier) error {
	if !tier.IsValid() {
		return errors.New("store: invalid plan tier")
	}
	s.PlanTier = tier
	s.IncrementVersion()
	s.Touch()
	return nil
}

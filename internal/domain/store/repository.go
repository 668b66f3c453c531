package store

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for stores
type Repository interface {
	// Save creates or updates a store
	Save(ctx context.Context, s *Store) error

	// FindByID finds a store by its ID, including disconnected ones
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)

	// FindByAccount finds all stores owned by an account.
	// Disconnected stores are excluded unless includeDisconnected is set.
	FindByAccount(ctx context.Context, accountID uuid.UUID, includeDisconnected bool) ([]Store, error)

	// CountActiveByAccount counts connected (non-disconnected) stores for an account
	CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

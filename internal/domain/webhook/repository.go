package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for webhook events
type Repository interface {
	// Insert persists a new event. The storage layer enforces the global
	// uniqueness of DedupKey; a violation surfaces as ErrDuplicateEvent so
	// concurrent duplicate deliveries survive the race.
	Insert(ctx context.Context, e *Event) error

	// Update persists processing-state changes of an existing event
	Update(ctx context.Context, e *Event) error

	// FindByID finds an event by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// FindByDedupKey finds an event by its dedup key
	FindByDedupKey(ctx context.Context, dedupKey string) (*Event, error)

	// ClaimDue atomically claims up to limit due pending events for
	// processing and returns them marked as processing
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Event, error)

	// FindByStatus lists events by processing status, newest first
	FindByStatus(ctx context.Context, status Status, limit, offset int) ([]*Event, int64, error)

	// DeleteProcessedBefore prunes processed events older than the cutoff
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

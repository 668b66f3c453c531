package webhook

import (
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	// ErrEventNotFound is returned when a webhook event cannot be located
	ErrEventNotFound = errors.New("webhook: event not found")
	// ErrDuplicateEvent is returned when the dedup key already exists
	ErrDuplicateEvent = errors.New("webhook: duplicate event")
	// ErrMissingDedupKey is returned when no provider event ID could be derived
	ErrMissingDedupKey = errors.New("webhook: dedup key could not be derived from payload")
)

// Retry configuration for downstream processing failures
const (
	DefaultMaxAttempts = 5
	BaseBackoff        = time.Second
	MaxBackoff         = 60 * time.Second
)

// Status is the processing status of an inbound webhook event
type Status string

const (
	// StatusPending indicates the event awaits interpretation
	StatusPending Status = "PENDING"
	// StatusProcessing indicates a worker claimed the event
	StatusProcessing Status = "PROCESSING"
	// StatusProcessed indicates downstream interpretation succeeded
	StatusProcessed Status = "PROCESSED"
	// StatusFailed indicates retries were exhausted; the event stays
	// queryable under the needs-attention view, never silently dropped
	StatusFailed Status = "FAILED"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Event is an inbound webhook delivery, persisted append-only. DedupKey
// (source + provider event ID) is globally unique at the storage layer;
// re-delivery of the same key is a no-op.
type Event struct {
	shared.BaseEntity
	Source        string
	EventType     string
	Signature     string
	RawPayload    []byte
	DedupKey      string
	StoreID       *uuid.UUID
	Status        Status
	AttemptCount  int
	MaxAttempts   int
	LastError     string
	NextAttemptAt *time.Time
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
}

// NewEvent records an accepted webhook delivery awaiting interpretation
func NewEvent(source, eventType, signature, dedupKey string, rawPayload []byte, storeID *uuid.UUID) (*Event, error) {
	if dedupKey == "" {
		return nil, ErrMissingDedupKey
	}
	now := time.Now()
	return &Event{
		BaseEntity:    shared.NewBaseEntity(),
		Source:        source,
		EventType:     eventType,
		Signature:     signature,
		RawPayload:    rawPayload,
		DedupKey:      dedupKey,
		StoreID:       storeID,
		Status:        StatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		NextAttemptAt: &now,
		ReceivedAt:    now,
	}, nil
}

// MarkProcessing claims the event for a worker
func (e *Event) MarkProcessing() error {
	if e.Status != StatusPending {
		return shared.ErrInvalidState
	}
	e.Status = StatusProcessing
	e.Touch()
	return nil
}

// MarkProcessed records successful downstream interpretation
func (e *Event) MarkProcessed() {
	now := time.Now()
	e.Status = StatusProcessed
	e.ProcessedAt = &now
	e.NextAttemptAt = nil
	e.LastError = ""
	e.Touch()
}

// MarkAttemptFailed records a downstream failure and schedules the next
// attempt with exponential backoff (1s base, factor 2, capped at 60s).
// After the attempt budget is exhausted the event moves to failed.
func (e *Event) MarkAttemptFailed(errMsg string) {
	e.AttemptCount++
	e.LastError = errMsg
	e.Touch()

	if e.AttemptCount >= e.MaxAttempts {
		e.Status = StatusFailed
		e.NextAttemptAt = nil
		return
	}

	backoff := BaseBackoff << uint(e.AttemptCount-1)
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	next := time.Now().Add(backoff)
	e.Status = StatusPending
	e.NextAttemptAt = &next
}

// ResetForRetry re-queues a failed event after operator intervention
func (e *Event) ResetForRetry() error {
	if e.Status != StatusFailed {
		return shared.ErrInvalidState
	}
	now := time.Now()
	e.Status = StatusPending
	e.AttemptCount = 0
	e.LastError = ""
	e.NextAttemptAt = &now
	e.Touch()
	return nil
}

// IsDue reports whether the event is ready for a processing attempt
func (e *Event) IsDue(now time.Time) bool {
	return e.Status == StatusPending && e.NextAttemptAt != nil && !e.NextAttemptAt.After(now)
}

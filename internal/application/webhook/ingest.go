// Package webhook implements the inbound webhook gateway: signature
// verification, durable intake with deduplication, and the background
// worker that interprets accepted events.
package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Outcome of one webhook delivery at the gateway
type Outcome string

const (
	// OutcomeAccepted means the delivery was persisted for interpretation
	OutcomeAccepted Outcome = "ACCEPTED"
	// OutcomeDuplicate means the delivery was seen before and dropped
	OutcomeDuplicate Outcome = "DUPLICATE"
)

// IngestResult reports what the gateway did with a delivery
type IngestResult struct {
	Outcome  Outcome   `json:"outcome"`
	EventID  uuid.UUID `json:"event_id,omitempty"`
	DedupKey string    `json:"dedup_key"`
}

// eventIDPaths are tried in order to derive the provider event ID
var eventIDPaths = []string{"id", "event_id", "eventId"}

// eventTypePaths are tried in order to derive the provider event type
var eventTypePaths = []string{"type", "topic", "event_type", "eventType"}

// IngestService verifies and durably records inbound webhook deliveries.
// Acceptance is decoupled from interpretation: a delivery that verifies and
// dedups is persisted and acknowledged even when downstream handling will
// later fail.
type IngestService struct {
	repo      webhook.Repository
	verifiers webhook.VerifierRegistry
	dedup     shared.IdempotencyStore
	dedupTTL  time.Duration
	logger    *zap.Logger
}

// NewIngestService creates the webhook gateway service
func NewIngestService(
	repo webhook.Repository,
	verifiers webhook.VerifierRegistry,
	dedup shared.IdempotencyStore,
	dedupTTL time.Duration,
	logger *zap.Logger,
) *IngestService {
	if dedupTTL <= 0 {
		dedupTTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &IngestService{
		repo:      repo,
		verifiers: verifiers,
		dedup:     dedup,
		dedupTTL:  dedupTTL,
		logger:    logger,
	}
}

// Ingest verifies, dedups and persists one delivery. A bad signature
// surfaces as webhook.ErrBadSignature; an underivable provider event ID as
// webhook.ErrMissingDedupKey. Re-deliveries return OutcomeDuplicate with no
// error so the provider stops retrying.
func (s *IngestService) Ingest(ctx context.Context, source, signatureHeader string, rawBody []byte, storeID *uuid.UUID) (*IngestResult, error) {
	verifier, err := s.verifiers.GetVerifier(source)
	if err != nil {
		return nil, err
	}
	if err := verifier.Verify(ctx, rawBody, signatureHeader); err != nil {
		s.logger.Warn("webhook signature rejected",
			zap.String("source", source),
		)
		return nil, err
	}

	providerEventID := firstString(rawBody, eventIDPaths)
	if providerEventID == "" {
		return nil, webhook.ErrMissingDedupKey
	}
	dedupKey := source + ":" + providerEventID
	eventType := firstString(rawBody, eventTypePaths)
	if eventType == "" {
		eventType = "unknown"
	}

	// Fast path. The unique constraint on the dedup key remains the
	// authority; a cache miss or error only costs one extra insert attempt.
	if s.dedup != nil {
		fresh, err := s.dedup.MarkProcessed(ctx, "webhook:"+dedupKey, s.dedupTTL)
		if err != nil {
			s.logger.Warn("dedup fast path unavailable", zap.Error(err))
		} else if !fresh {
			return &IngestResult{Outcome: OutcomeDuplicate, DedupKey: dedupKey}, nil
		}
	}

	evt, err := webhook.NewEvent(source, eventType, signatureHeader, dedupKey, rawBody, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, evt); err != nil {
		if errors.Is(err, webhook.ErrDuplicateEvent) {
			return &IngestResult{Outcome: OutcomeDuplicate, DedupKey: dedupKey}, nil
		}
		return nil, err
	}

	s.logger.Info("webhook accepted",
		zap.String("source", source),
		zap.String("event_type", eventType),
		zap.String("dedup_key", dedupKey),
		zap.String("event_id", evt.ID.String()),
	)
	return &IngestResult{Outcome: OutcomeAccepted, EventID: evt.ID, DedupKey: dedupKey}, nil
}

func firstString(body []byte, paths []string) string {
	for _, path := range paths {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

package webhook

import (
	"context"
	"time"

	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProcessorConfig bounds the background interpretation worker
type ProcessorConfig struct {
	// PollInterval is how often due events are claimed
	PollInterval time.Duration
	// BatchSize is how many due events one poll claims
	BatchSize int
	// CleanupRetention is how long processed events are kept before pruning
	CleanupRetention time.Duration
}

// DefaultProcessorConfig returns the default processor configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     2 * time.Second,
		BatchSize:        50,
		CleanupRetention: 30 * 24 * time.Hour,
	}
}

// Processor drains accepted webhook events and interprets them through the
// router. Failures are retried with the event's backoff schedule; exhausted
// events stay queryable under the needs-attention view.
type Processor struct {
	repo   webhook.Repository
	router Router
	cfg    ProcessorConfig
	logger *zap.Logger
	stop   chan struct{}
	done   chan struct{}
}

// NewProcessor creates the webhook interpretation worker
func NewProcessor(repo webhook.Repository, router Router, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultProcessorConfig().PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultProcessorConfig().BatchSize
	}
	return &Processor{
		repo:   repo,
		router: router,
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called or the context ends
func (p *Processor) Start(ctx context.Context) {
	go p.run(ctx)
	p.logger.Info("webhook processor started",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
	)
}

// Stop halts the polling loop and waits for the in-flight batch
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
	p.logger.Info("webhook processor stopped")
}

func (p *Processor) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessDue(ctx); err != nil {
				p.logger.Error("webhook processing poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessDue claims and interprets one batch of due events, returning how
// many were handled
func (p *Processor) ProcessDue(ctx context.Context) (int, error) {
	events, err := p.repo.ClaimDue(ctx, time.Now(), p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, evt := range events {
		p.processOne(ctx, evt)
	}
	return len(events), nil
}

func (p *Processor) processOne(ctx context.Context, evt *webhook.Event) {
	if err := p.router.Route(ctx, evt); err != nil {
		evt.MarkAttemptFailed(err.Error())
		logFn := p.logger.Warn
		if evt.Status == webhook.StatusFailed {
			logFn = p.logger.Error
		}
		logFn("webhook interpretation failed",
			zap.String("dedup_key", evt.DedupKey),
			zap.String("source", evt.Source),
			zap.Int("attempt", evt.AttemptCount),
			zap.String("status", evt.Status.String()),
			zap.Error(err),
		)
	} else {
		evt.MarkProcessed()
	}

	if err := p.repo.Update(ctx, evt); err != nil {
		p.logger.Error("persisting webhook event state failed",
			zap.String("dedup_key", evt.DedupKey),
			zap.Error(err),
		)
	}
}

// RetryFailed re-queues one exhausted event after operator intervention
func (p *Processor) RetryFailed(ctx context.Context, eventID uuid.UUID) (*webhook.Event, error) {
	evt, err := p.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := evt.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := p.repo.Update(ctx, evt); err != nil {
		return nil, err
	}
	p.logger.Info("webhook event re-queued",
		zap.String("dedup_key", evt.DedupKey),
	)
	return evt, nil
}

// NeedsAttention lists events whose retries were exhausted
func (p *Processor) NeedsAttention(ctx context.Context, limit, offset int) ([]*webhook.Event, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	return p.repo.FindByStatus(ctx, webhook.StatusFailed, limit, offset)
}

// CleanupProcessed prunes processed events older than the retention window
func (p *Processor) CleanupProcessed(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.cfg.CleanupRetention)
	deleted, err := p.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("pruned processed webhook events", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

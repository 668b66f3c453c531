// Package ordersync reconciles storefront order payloads into the
// canonical order model.
package ordersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgersvc "github.com/dropship/backend/internal/application/ledger"
	quotasvc "github.com/dropship/backend/internal/application/quota"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/dropship/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrSyncInProgress is returned when a sync run is already holding the
// store's sync lock
var ErrSyncInProgress = errors.New("ordersync: a sync run is already in progress for this store")

const syncLockTTL = 10 * time.Minute

// Outcome describes what a reconciled payload did to the canonical order
type Outcome string

const (
	// OutcomeCreated means a new canonical order was recorded
	OutcomeCreated Outcome = "CREATED"
	// OutcomeUpdated means an existing order applied a newer revision
	OutcomeUpdated Outcome = "UPDATED"
	// OutcomeStale means the payload carried an older revision and was discarded
	OutcomeStale Outcome = "STALE"
)

// SyncReport summarizes one store sync run
type SyncReport struct {
	StoreID  uuid.UUID `json:"store_id"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Stale    int       `json:"stale"`
	Failed   int       `json:"failed"`
	Duration string    `json:"duration"`
}

// Service reconciles provider order payloads into canonical orders.
// Revision staleness, not arrival order, decides whether a payload applies.
type Service struct {
	storeRepo store.Repository
	orderRepo order.Repository
	platforms storefront.PlatformRegistry
	ledger    *ledgersvc.Service
	quota     *quotasvc.Service
	publisher shared.EventPublisher
	locks     shared.KeyedLock
	logger    *zap.Logger
}

// NewService creates an order sync service
func NewService(
	storeRepo store.Repository,
	orderRepo order.Repository,
	platforms storefront.PlatformRegistry,
	ledger *ledgersvc.Service,
	quota *quotasvc.Service,
	publisher shared.EventPublisher,
	locks shared.KeyedLock,
	logger *zap.Logger,
) *Service {
	return &Service{
		storeRepo: storeRepo,
		orderRepo: orderRepo,
		platforms: platforms,
		ledger:    ledger,
		quota:     quota,
		publisher: publisher,
		locks:     locks,
		logger:    logger,
	}
}

// IngestPayload reconciles one provider-native order payload for a store.
// This is the path webhook-delivered order events take.
func (s *Service) IngestPayload(ctx context.Context, storeID uuid.UUID, payload []byte) (*order.Order, Outcome, error) {
	st, err := s.operationalStore(ctx, storeID)
	if err != nil {
		return nil, "", err
	}
	adapter, err := s.platforms.GetAdapter(st.Platform)
	if err != nil {
		return nil, "", err
	}
	draft, err := adapter.Parse(payload)
	if err != nil {
		return nil, "", err
	}
	return s.applyDraft(ctx, st, draft)
}

// SyncOrder pulls one order from the platform and reconciles it
func (s *Service) SyncOrder(ctx context.Context, storeID uuid.UUID, nativeID string) (*order.Order, Outcome, error) {
	st, err := s.operationalStore(ctx, storeID)
	if err != nil {
		return nil, "", err
	}
	adapter, err := s.platforms.GetAdapter(st.Platform)
	if err != nil {
		return nil, "", err
	}
	payload, err := adapter.FetchOrder(ctx, st.ID, nativeID)
	if err != nil {
		return nil, "", err
	}
	draft, err := adapter.Parse(payload)
	if err != nil {
		return nil, "", err
	}
	return s.applyDraft(ctx, st, draft)
}

// SyncStore re-pulls the store's payment-pending orders from the platform.
// One run per store at a time: the store-scoped sync lock admits the first
// caller and turns the rest away, so a scheduled run never piles onto an
// operator-triggered one.
func (s *Service) SyncStore(ctx context.Context, storeID uuid.UUID) (*SyncReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_sync", "sync_store",
		attribute.String("store_id", storeID.String()))
	defer span.End()

	release, acquired, err := s.locks.TryAcquire(ctx, "sync:"+storeID.String(), syncLockTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}
	defer release()

	st, err := s.operationalStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.platforms.GetAdapter(st.Platform)
	if err != nil {
		return nil, err
	}

	if err := st.BeginSync(); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	started := time.Now()
	report := &SyncReport{StoreID: storeID}
	pending := order.PaymentStatusPending
	page := 1
	for {
		batch, _, err := s.orderRepo.FindByStore(ctx, storeID, order.Filter{
			PaymentStatus: &pending,
			Page:          page,
			PageSize:      100,
		})
		if err != nil {
			s.finishSync(ctx, st, false)
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			s.resync(ctx, st, adapter, &batch[i], report)
		}
		if len(batch) < 100 {
			break
		}
		page++
	}

	s.finishSync(ctx, st, report.Failed == 0)
	report.Duration = time.Since(started).String()
	span.SetAttributes(
		attribute.Int("orders.created", report.Created),
		attribute.Int("orders.updated", report.Updated),
		attribute.Int("orders.failed", report.Failed),
	)

	s.logger.Info("store sync finished",
		zap.String("store_id", storeID.String()),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("stale", report.Stale),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Service) resync(ctx context.Context, st *store.Store, adapter storefront.PlatformAdapter, o *order.Order, report *SyncReport) {
	payload, err := adapter.FetchOrder(ctx, st.ID, o.ExternalOrderID)
	if err != nil {
		if errors.Is(err, storefront.ErrOrderNotFoundOnPlatform) {
			report.Stale++
			return
		}
		report.Failed++
		s.logger.Warn("fetching order during sync failed",
			zap.String("external_order_id", o.ExternalOrderID),
			zap.Error(err),
		)
		return
	}
	draft, err := adapter.Parse(payload)
	if err != nil {
		report.Failed++
		s.logger.Warn("parsing order during sync failed",
			zap.String("external_order_id", o.ExternalOrderID),
			zap.Error(err),
		)
		return
	}
	_, outcome, err := s.applyDraft(ctx, st, draft)
	if err != nil {
		report.Failed++
		return
	}
	switch outcome {
	case OutcomeCreated:
		report.Created++
	case OutcomeUpdated:
		report.Updated++
	case OutcomeStale:
		report.Stale++
	}
}

// applyDraft upserts a draft into the canonical model. Creation and revision
// application both survive races: a duplicate create falls through to the
// revision path, a concurrent update re-reads and retries once.
func (s *Service) applyDraft(ctx context.Context, st *store.Store, draft *order.Draft) (*order.Order, Outcome, error) {
	existing, err := s.orderRepo.FindByExternalID(ctx, st.ID, draft.ExternalOrderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		o, created, err := s.createFromDraft(ctx, st, draft)
		if err != nil {
			return nil, "", err
		}
		if created {
			return o, OutcomeCreated, nil
		}
		existing = o
	} else if err != nil {
		return nil, "", err
	}

	for attempt := 0; ; attempt++ {
		if err := existing.ApplyRevision(draft); err != nil {
			if errors.Is(err, order.ErrStaleRevision) {
				s.logger.Debug("stale revision discarded",
					zap.String("external_order_id", draft.ExternalOrderID),
					zap.Int64("incoming_revision", draft.ProviderRevision),
					zap.Int64("current_revision", existing.ProviderRevision),
				)
				return existing, OutcomeStale, nil
			}
			return nil, "", err
		}

		err := s.orderRepo.Save(ctx, existing)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt == 0 {
			existing, err = s.orderRepo.FindByExternalID(ctx, st.ID, draft.ExternalOrderID)
			if err != nil {
				return nil, "", err
			}
			continue
		}
		return nil, "", err
	}

	s.afterPersist(ctx, st, existing)
	return existing, OutcomeUpdated, nil
}

func (s *Service) createFromDraft(ctx context.Context, st *store.Store, draft *order.Draft) (*order.Order, bool, error) {
	o, err := order.NewOrderFromDraft(st.ID, draft)
	if err != nil {
		return nil, false, err
	}

	quotaResult, err := s.quota.CheckOrderQuota(ctx, st)
	if err != nil {
		s.logger.Warn("order quota check failed, admitting order", zap.Error(err))
	} else if !quotaResult.Allowed {
		o.MarkQuotaExceeded()
		s.logger.Warn("order recorded over plan quota, dispatch suppressed",
			zap.String("store_id", st.ID.String()),
			zap.String("external_order_id", o.ExternalOrderID),
			zap.Int64("limit", quotaResult.Limit),
		)
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost the create race; the caller applies the draft as a revision.
			existing, findErr := s.orderRepo.FindByExternalID(ctx, st.ID, draft.ExternalOrderID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.afterPersist(ctx, st, o)
	return o, true, nil
}

// afterPersist publishes the order's pending events and emits the sale
// entry on paid orders. Sale emission is idempotent per order.
func (s *Service) afterPersist(ctx context.Context, st *store.Store, o *order.Order) {
	events := o.GetDomainEvents()
	o.ClearDomainEvents()
	if len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Error("publishing order events failed", zap.Error(err))
		}
	}

	if o.PaymentStatus != order.PaymentStatusPaid {
		return
	}
	if _, err := s.ledger.RecordSale(ctx, st.ID, o.ID, o.Total.Amount(), string(o.Total.Currency())); err != nil {
		s.logger.Error("recording sale for paid order failed",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) operationalStore(ctx context.Context, storeID uuid.UUID) (*store.Store, error) {
	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if st.Status == store.StatusSuspended {
		return nil, store.ErrStoreSuspended
	}
	if !st.IsOperational() {
		return nil, store.ErrStoreDisconnected
	}
	return st, nil
}

func (s *Service) finishSync(ctx context.Context, st *store.Store, succeeded bool) {
	st.FinishSync(succeeded)
	if err := s.storeRepo.Save(ctx, st); err != nil {
		s.logger.Error("persisting sync outcome failed",
			zap.String("store_id", st.ID.String()),
			zap.Error(err),
		)
	}
}

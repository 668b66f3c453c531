// Package store implements store lifecycle management: connecting
// storefronts, plan changes and disconnection.
package store

import (
	"context"

	quotasvc "github.com/dropship/backend/internal/application/quota"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectInput carries everything needed to connect a storefront
type ConnectInput struct {
	AccountID      uuid.UUID      `json:"account_id"`
	Name           string         `json:"name"`
	Platform       store.Platform `json:"platform"`
	CredentialsRef string         `json:"credentials_ref"`
	PlanTier       store.PlanTier `json:"plan_tier"`
}

// Service manages the store lifecycle
type Service struct {
	repo      store.Repository
	orderRepo order.Repository
	quota     *quotasvc.Service
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a store management service
func NewService(
	repo store.Repository,
	orderRepo order.Repository,
	quota *quotasvc.Service,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		orderRepo: orderRepo,
		quota:     quota,
		publisher: publisher,
		logger:    logger,
	}
}

// Connect connects a new storefront for an account. The account's plan tier
// bounds how many stores it may connect; the limit is enforced, not advisory.
func (s *Service) Connect(ctx context.Context, input ConnectInput) (*store.Store, error) {
	if err := s.quota.EnforceStoreLimit(ctx, input.AccountID, input.PlanTier); err != nil {
		return nil, err
	}

	st, err := store.NewStore(input.AccountID, input.Name, input.Platform, input.CredentialsRef, input.PlanTier)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, st)

	s.logger.Info("store connected",
		zap.String("store_id", st.ID.String()),
		zap.String("account_id", input.AccountID.String()),
		zap.String("platform", st.Platform.String()),
		zap.String("plan_tier", st.PlanTier.String()),
	)
	return st, nil
}

// Disconnect soft-deletes a store. Its order history stays queryable.
func (s *Service) Disconnect(ctx context.Context, storeID uuid.UUID) error {
	st, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return err
	}
	if err := st.Disconnect(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return err
	}
	s.publishEvents(ctx, st)

	s.logger.Info("store disconnected", zap.String("store_id", storeID.String()))
	return nil
}

// Suspend suspends a store; sync and dispatch stop accepting work for it
func (s *Service) Suspend(ctx context.Context, storeID uuid.UUID) error {
	st, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return err
	}
	if st.Status == store.StatusDisconnected {
		return store.ErrStoreDisconnected
	}
	st.Suspend()
	if err := s.repo.Save(ctx, st); err != nil {
		return err
	}
	s.logger.Info("store suspended", zap.String("store_id", storeID.String()))
	return nil
}

// ChangePlan moves a store to a different plan tier. On upgrade, orders that
// were recorded over quota become dispatchable again when the new ceiling
// admits them.
func (s *Service) ChangePlan(ctx context.Context, storeID uuid.UUID, tier store.PlanTier) (*store.Store, error) {
	st, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	previous := st.PlanTier
	if err := st.ChangePlan(tier); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.logger.Info("store plan changed",
		zap.String("store_id", storeID.String()),
		zap.String("from", previous.String()),
		zap.String("to", tier.String()),
	)

	if store.PlanFor(tier).MaxOrdersPerMonth > store.PlanFor(previous).MaxOrdersPerMonth {
		if err := s.releaseQuotaSuppressed(ctx, st); err != nil {
			s.logger.Error("releasing quota-suppressed orders failed",
				zap.String("store_id", storeID.String()),
				zap.Error(err),
			)
		}
	}
	return st, nil
}

// releaseQuotaSuppressed clears the quota marker from suppressed orders as
// long as the current usage stays under the new ceiling
func (s *Service) releaseQuotaSuppressed(ctx context.Context, st *store.Store) error {
	status := order.FulfillmentStatusQuotaExceeded
	released := 0
	for page := 1; ; page++ {
		batch, _, err := s.orderRepo.FindByStore(ctx, st.ID, order.Filter{
			FulfillmentStatus: &status,
			Page:              page,
			PageSize:          100,
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			check, err := s.quota.CheckOrderQuota(ctx, st)
			if err != nil {
				return err
			}
			if !check.Allowed {
				s.logger.Info("new plan ceiling reached while releasing orders",
					zap.String("store_id", st.ID.String()),
					zap.Int("released", released),
				)
				return nil
			}
			o := &batch[i]
			o.ClearQuotaExceeded()
			if err := s.orderRepo.Save(ctx, o); err != nil {
				return err
			}
			released++
		}
		if len(batch) < 100 {
			break
		}
	}
	if released > 0 {
		s.logger.Info("quota-suppressed orders released",
			zap.String("store_id", st.ID.String()),
			zap.Int("released", released),
		)
	}
	return nil
}

// Get returns one store by ID
func (s *Service) Get(ctx context.Context, storeID uuid.UUID) (*store.Store, error) {
	return s.repo.FindByID(ctx, storeID)
}

// ListByAccount lists an account's stores
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID, includeDisconnected bool) ([]store.Store, error) {
	return s.repo.FindByAccount(ctx, accountID, includeDisconnected)
}

// Usage reports a store's current quota consumption
func (s *Service) Usage(ctx context.Context, storeID uuid.UUID) (*quotasvc.UsageSummary, error) {
	st, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.quota.Usage(ctx, st)
}

func (s *Service) publishEvents(ctx context.Context, st *store.Store) {
	events := st.GetDomainEvents()
	st.ClearDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("publishing store events failed", zap.Error(err))
	}
}

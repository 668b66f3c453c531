// Package quota evaluates plan ceilings for accounts and stores.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resource names a plan-limited resource
type Resource string

const (
	// ResourceStores is the connected-store ceiling of a plan
	ResourceStores Resource = "stores"
	// ResourceOrders is the synced-orders-per-month ceiling of a plan
	ResourceOrders Resource = "orders_per_month"
)

// CheckResult is the outcome of one quota evaluation
type CheckResult struct {
	Allowed      bool     `json:"allowed"`
	Resource     Resource `json:"resource"`
	CurrentUsage int64    `json:"current_usage"`
	Limit        int64    `json:"limit"`
	Remaining    int64    `json:"remaining"`
}

// UsageSummary reports a store's consumption against its plan
type UsageSummary struct {
	StoreID uuid.UUID                `json:"store_id"`
	Tier    store.PlanTier           `json:"tier"`
	Usages  map[Resource]CheckResult `json:"usages"`
}

// Service evaluates plan quotas. Store connection is enforced at the
// ceiling; order sync is advisory and never discards order data.
type Service struct {
	storeRepo store.Repository
	orderRepo order.Repository
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a quota service
func NewService(storeRepo store.Repository, orderRepo order.Repository, logger *zap.Logger) *Service {
	return &Service{
		storeRepo: storeRepo,
		orderRepo: orderRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckStoreLimit evaluates whether an account may connect one more store
// on the given tier
func (s *Service) CheckStoreLimit(ctx context.Context, accountID uuid.UUID, tier store.PlanTier) (*CheckResult, error) {
	plan := store.PlanFor(tier)
	active, err := s.storeRepo.CountActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("counting active stores: %w", err)
	}
	return newCheckResult(ResourceStores, active, int64(plan.MaxStores), 1), nil
}

// EnforceStoreLimit is CheckStoreLimit with the plan ceiling enforced:
// it returns shared.ErrQuotaExceeded when connecting one more store would
// pass the plan limit
func (s *Service) EnforceStoreLimit(ctx context.Context, accountID uuid.UUID, tier store.PlanTier) error {
	result, err := s.CheckStoreLimit(ctx, accountID, tier)
	if err != nil {
		return err
	}
	if !result.Allowed {
		s.logger.Warn("store connection blocked by plan quota",
			zap.String("account_id", accountID.String()),
			zap.String("tier", tier.String()),
			zap.Int64("current", result.CurrentUsage),
			zap.Int64("limit", result.Limit),
		)
		return shared.ErrQuotaExceeded
	}
	return nil
}

// CheckOrderQuota evaluates the store's synced-orders count for the current
// calendar month against its plan. The result is advisory: callers record
// the order either way and flag it when the ceiling is passed.
func (s *Service) CheckOrderQuota(ctx context.Context, st *store.Store) (*CheckResult, error) {
	plan := store.PlanFor(st.PlanTier)
	count, err := s.orderRepo.CountForStoreSince(ctx, st.ID, startOfMonth(s.now()))
	if err != nil {
		return nil, fmt.Errorf("counting orders this month: %w", err)
	}
	return newCheckResult(ResourceOrders, count, int64(plan.MaxOrdersPerMonth), 1), nil
}

// Usage reports a store's current consumption across all plan resources
func (s *Service) Usage(ctx context.Context, st *store.Store) (*UsageSummary, error) {
	plan := store.PlanFor(st.PlanTier)

	orders, err := s.orderRepo.CountForStoreSince(ctx, st.ID, startOfMonth(s.now()))
	if err != nil {
		return nil, fmt.Errorf("counting orders this month: %w", err)
	}
	stores, err := s.storeRepo.CountActiveByAccount(ctx, st.AccountID)
	if err != nil {
		return nil, fmt.Errorf("counting active stores: %w", err)
	}

	return &UsageSummary{
		StoreID: st.ID,
		Tier:    st.PlanTier,
		Usages: map[Resource]CheckResult{
			ResourceStores: *newCheckResult(ResourceStores, stores, int64(plan.MaxStores), 0),
			ResourceOrders: *newCheckResult(ResourceOrders, orders, int64(plan.MaxOrdersPerMonth), 0),
		},
	}, nil
}

// newCheckResult evaluates usage+amount against a limit
func newCheckResult(resource Resource, usage, limit, amount int64) *CheckResult {
	remaining := limit - usage
	if remaining < 0 {
		remaining = 0
	}
	return &CheckResult{
		Allowed:      usage+amount <= limit,
		Resource:     resource,
		CurrentUsage: usage,
		Limit:        limit,
		Remaining:    remaining,
	}
}

// startOfMonth returns the first instant of t's calendar month in UTC.
// Monthly quota windows are calendar months, not rolling 30-day windows.
func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Package scheduler runs the periodic background jobs: the stuck supplier
// order sweep and scheduled storefront synchronization.
package scheduler

import (
	"context"
	"errors"
	"time"

	fulfillsvc "github.com/dropship/backend/internal/application/fulfillment"
	"github.com/dropship/backend/internal/application/ordersync"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StoreLister supplies the stores eligible for periodic sync
type StoreLister interface {
	ListSyncable(ctx context.Context) ([]SyncTarget, error)
}

// SyncTarget is one store the periodic sync should visit
type SyncTarget struct {
	StoreID uuid.UUID
	Name    string
}

// Scheduler owns the cron runner and the jobs registered on it
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	dispatch *fulfillsvc.Service
	sync     *ordersync.Service
	stores   StoreLister
	logger   *zap.Logger
}

// New creates a scheduler with the sweep and sync jobs registered
func New(
	cfg config.SchedulerConfig,
	dispatch *fulfillsvc.Service,
	sync *ordersync.Service,
	stores StoreLister,
	logger *zap.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		dispatch: dispatch,
		sync:     sync,
		stores:   stores,
		logger:   logger,
	}

	if cfg.SweepSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.runSweep); err != nil {
			return nil, err
		}
	}
	if cfg.SyncSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.SyncSchedule, s.runSync); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins executing the registered jobs on their schedules
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("sweep_schedule", s.cfg.SweepSchedule),
		zap.String("sync_schedule", s.cfg.SyncSchedule),
	)
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	redriven, err := s.dispatch.SweepStuck(ctx, s.cfg.SweepStuckAfter, 200)
	if err != nil {
		s.logger.Error("stuck supplier order sweep failed", zap.Error(err))
		return
	}
	if redriven > 0 {
		s.logger.Info("stuck supplier order sweep completed",
			zap.Int("redriven", redriven),
		)
	}
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	targets, err := s.stores.ListSyncable(ctx)
	if err != nil {
		s.logger.Error("listing stores for periodic sync failed", zap.Error(err))
		return
	}

	for _, target := range targets {
		report, err := s.sync.SyncStore(ctx, target.StoreID)
		if err != nil {
			// an operator-triggered sync already holds the store lock
			if errors.Is(err, ordersync.ErrSyncInProgress) {
				continue
			}
			s.logger.Warn("periodic sync failed for store",
				zap.String("store_id", target.StoreID.String()),
				zap.String("store_name", target.Name),
				zap.Error(err),
			)
			continue
		}
		if report.Created+report.Updated > 0 {
			s.logger.Info("periodic sync finished for store",
				zap.String("store_id", target.StoreID.String()),
				zap.Int("created", report.Created),
				zap.Int("updated", report.Updated),
				zap.Int("stale", report.Stale),
			)
		}
	}
}

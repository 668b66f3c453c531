// Package fulfillment drives supplier order placement and tracking for
// paid storefront orders.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	// ErrDispatchNotAllowed is returned when the order cannot be dispatched
	ErrDispatchNotAllowed = errors.New("fulfillment: order is not dispatchable")
	// ErrDispatchContended is returned when another worker holds the
	// placement lock for every supplier of the order
	ErrDispatchContended = errors.New("fulfillment: dispatch already in progress")
)

// Config bounds the dispatcher's placement behavior
type Config struct {
	// PlacementTimeout bounds one supplier placement call
	PlacementTimeout time.Duration
	// MaxAttempts bounds transient-error retries per placement
	MaxAttempts int
	// RetryBackoff is the base delay between placement retries
	RetryBackoff time.Duration
	// BulkConcurrency bounds the bulk dispatch worker pool
	BulkConcurrency int
	// LockTTL bounds how long an (order, supplier) lock may be held.
	// Must exceed PlacementTimeout so the lock outlives the slowest call.
	LockTTL time.Duration
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		PlacementTimeout: 30 * time.Second,
		MaxAttempts:      3,
		RetryBackoff:     time.Second,
		BulkConcurrency:  16,
		LockTTL:          45 * time.Second,
	}
}

// SupplierOutcome reports what dispatch did for one supplier of an order
type SupplierOutcome struct {
	SupplierID      uuid.UUID         `json:"supplier_id"`
	SupplierOrderID uuid.UUID         `json:"supplier_order_id,omitempty"`
	State           fulfillment.State `json:"state,omitempty"`
	Skipped         bool              `json:"skipped"`
	Reason          string            `json:"reason,omitempty"`
}

// DispatchResult reports the outcome of dispatching one order
type DispatchResult struct {
	OrderID   uuid.UUID         `json:"order_id"`
	Suppliers []SupplierOutcome `json:"suppliers"`
}

// BulkDispatchResult reports the outcome of a bulk dispatch run
type BulkDispatchResult struct {
	Dispatched []DispatchResult     `json:"dispatched"`
	Errors     map[uuid.UUID]string `json:"errors,omitempty"`
}

// Service is the fulfillment dispatcher. Placement per (order, supplier)
// is serialized by an advisory lock and guarded by the single open supplier
// order rule, so concurrent dispatch calls cannot double-place.
type Service struct {
	orderRepo order.Repository
	repo      fulfillment.Repository
	directory fulfillment.SupplierDirectory
	suppliers fulfillment.SupplierRegistry
	locks     shared.KeyedLock
	publisher shared.EventPublisher
	cfg       Config
	logger    *zap.Logger
}

// NewService creates a fulfillment dispatch service
func NewService(
	orderRepo order.Repository,
	repo fulfillment.Repository,
	directory fulfillment.SupplierDirectory,
	suppliers fulfillment.SupplierRegistry,
	locks shared.KeyedLock,
	publisher shared.EventPublisher,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BulkConcurrency < 1 {
		cfg.BulkConcurrency = 1
	}
	return &Service{
		orderRepo: orderRepo,
		repo:      repo,
		directory: directory,
		suppliers: suppliers,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Dispatch places supplier orders for every supplier referenced by the
// order's line items. Suppliers that already have an open supplier order
// are skipped, so dispatch is safe to call repeatedly.
func (s *Service) Dispatch(ctx context.Context, orderID uuid.UUID) (*DispatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "dispatch",
		attribute.String("order_id", orderID.String()))
	defer span.End()

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !o.CanDispatch() {
		err := fmt.Errorf("%w: payment %s, fulfillment %s",
			ErrDispatchNotAllowed, o.PaymentStatus, o.FulfillmentStatus)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if o.FulfillmentStatus == order.FulfillmentStatusUnfulfilled {
		if err := o.SetFulfillmentStatus(order.FulfillmentStatusDispatching); err != nil {
			return nil, err
		}
		if err := s.orderRepo.Save(ctx, o); err != nil && !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
	}

	result := &DispatchResult{OrderID: orderID}
	for _, supplierID := range o.SuppliersReferenced() {
		if supplierID == uuid.Nil {
			result.Suppliers = append(result.Suppliers, SupplierOutcome{
				SupplierID: supplierID,
				Skipped:    true,
				Reason:     "line items carry no supplier assignment",
			})
			s.logger.Warn("order has unassigned line items, skipping",
				zap.String("order_id", orderID.String()),
			)
			continue
		}
		result.Suppliers = append(result.Suppliers, s.dispatchSupplier(ctx, o, supplierID))
	}

	s.projectOrderStatus(ctx, o.ID)
	return result, nil
}

// dispatchSupplier places one supplier's portion of an order under the
// (order, supplier) advisory lock
func (s *Service) dispatchSupplier(ctx context.Context, o *order.Order, supplierID uuid.UUID) SupplierOutcome {
	outcome := SupplierOutcome{SupplierID: supplierID}

	lockKey := fmt.Sprintf("dispatch:%s:%s", o.ID, supplierID)
	release, acquired, err := s.locks.TryAcquire(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		outcome.Skipped = true
		outcome.Reason = "lock error: " + err.Error()
		return outcome
	}
	if !acquired {
		outcome.Skipped = true
		outcome.Reason = "placement already in progress"
		return outcome
	}
	defer release()

	so, err := s.openSupplierOrder(ctx, o, supplierID)
	if err != nil {
		outcome.Skipped = true
		outcome.Reason = err.Error()
		return outcome
	}
	outcome.SupplierOrderID = so.ID
	if so.State != fulfillment.StatePending {
		// already placed or in flight
		outcome.Skipped = true
		outcome.State = so.State
		outcome.Reason = "supplier order already " + so.State.String()
		return outcome
	}

	supplier, err := s.directory.Resolve(supplierID)
	if err != nil {
		s.failPlacement(ctx, so, err.Error())
		outcome.State = so.State
		outcome.Reason = err.Error()
		return outcome
	}
	adapter, err := s.suppliers.GetAdapter(supplier.Code)
	if err != nil {
		s.failPlacement(ctx, so, err.Error())
		outcome.State = so.State
		outcome.Reason = err.Error()
		return outcome
	}

	if err := so.BeginPlacement(); err != nil {
		outcome.Skipped = true
		outcome.Reason = err.Error()
		return outcome
	}
	if err := s.repo.Save(ctx, so); err != nil {
		outcome.Skipped = true
		outcome.Reason = err.Error()
		return outcome
	}

	placement, err := s.placeWithRetries(ctx, adapter, so, o)
	if err != nil {
		s.failPlacement(ctx, so, err.Error())
		outcome.State = so.State
		outcome.Reason = err.Error()
		return outcome
	}

	if err := so.MarkPlaced(placement.SupplierNativeID); err != nil {
		outcome.Reason = err.Error()
		outcome.State = so.State
		return outcome
	}
	if placement.Cost.IsPositive() {
		so.Cost = placement.Cost
	}
	if err := s.repo.Save(ctx, so); err != nil {
		outcome.Reason = err.Error()
		return outcome
	}
	s.publishEvents(ctx, so)

	s.logger.Info("supplier order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("supplier_order_id", so.ID.String()),
		zap.String("supplier_native_id", so.SupplierNativeID),
		zap.Int("attempts", so.AttemptCount),
	)
	outcome.State = so.State
	return outcome
}

// openSupplierOrder returns the open supplier order for the pair, creating
// a pending one when none exists
func (s *Service) openSupplierOrder(ctx context.Context, o *order.Order, supplierID uuid.UUID) (*fulfillment.SupplierOrder, error) {
	so, err := s.repo.FindOpenByOrderAndSupplier(ctx, o.ID, supplierID)
	if err == nil {
		return so, nil
	}
	if !errors.Is(err, fulfillment.ErrSupplierOrderNotFound) {
		return nil, err
	}

	estimate := decimalSum(o.ItemsForSupplier(supplierID))
	so = fulfillment.NewSupplierOrder(o.ID, o.StoreID, supplierID, estimate)
	if err := s.repo.Save(ctx, so); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.repo.FindOpenByOrderAndSupplier(ctx, o.ID, supplierID)
		}
		return nil, err
	}
	s.publishEvents(ctx, so)
	return so, nil
}

// placeWithRetries calls the supplier adapter with the placement timeout,
// retrying transient failures only
func (s *Service) placeWithRetries(ctx context.Context, adapter fulfillment.SupplierAdapter, so *fulfillment.SupplierOrder, o *order.Order) (*fulfillment.Placement, error) {
	draft := placementDraft(so, o)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.PlacementTimeout)
		placement, err := adapter.PlaceOrder(callCtx, draft)
		cancel()
		if err == nil {
			return placement, nil
		}
		lastErr = err

		if !shared.IsTransient(err) {
			return nil, err
		}
		s.logger.Warn("transient placement failure",
			zap.String("supplier_order_id", so.ID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < s.cfg.MaxAttempts {
			select {
			case <-time.After(s.cfg.RetryBackoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("placement retries exhausted: %w", lastErr)
}

func (s *Service) failPlacement(ctx context.Context, so *fulfillment.SupplierOrder, reason string) {
	if err := so.MarkFailed(reason); err != nil {
		s.logger.Error("marking supplier order failed",
			zap.String("supplier_order_id", so.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.repo.Save(ctx, so); err != nil {
		s.logger.Error("persisting failed supplier order",
			zap.String("supplier_order_id", so.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.publishEvents(ctx, so)
}

// BulkDispatch dispatches many orders through a bounded worker pool.
// Failures are isolated per order.
func (s *Service) BulkDispatch(ctx context.Context, orderIDs []uuid.UUID) *BulkDispatchResult {
	result := &BulkDispatchResult{Errors: make(map[uuid.UUID]string)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.BulkConcurrency)

	for _, orderID := range orderIDs {
		wg.Add(1)
		go func(orderID uuid.UUID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			dispatched, err := s.Dispatch(ctx, orderID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[orderID] = err.Error()
				return
			}
			result.Dispatched = append(result.Dispatched, *dispatched)
		}(orderID)
	}
	wg.Wait()
	return result
}

// AdvanceStatus polls the supplier for one supplier order and applies the
// reported state, then re-projects the order-level fulfillment status
func (s *Service) AdvanceStatus(ctx context.Context, supplierOrderID uuid.UUID) (*fulfillment.SupplierOrder, error) {
	so, err := s.repo.FindByID(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	if so.State.IsTerminal() {
		return so, nil
	}
	if so.SupplierNativeID == "" {
		return nil, fmt.Errorf("%w: supplier order %s has no native ID", fulfillment.ErrInvalidTransition, so.ID)
	}

	supplier, err := s.directory.Resolve(so.SupplierID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.suppliers.GetAdapter(supplier.Code)
	if err != nil {
		return nil, err
	}

	report, err := adapter.GetStatus(ctx, so.SupplierNativeID)
	if err != nil {
		return nil, err
	}

	advanced := false
	for !so.State.IsTerminal() {
		changed, err := s.applyReportStep(so, report)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
		if err := s.repo.Save(ctx, so); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, so)
		advanced = true
	}
	if !advanced {
		return so, nil
	}
	s.projectOrderStatus(ctx, so.OrderID)
	return so, nil
}

// applyReportStep moves the supplier order one transition towards the
// reported state. Each step is persisted by the caller before the next,
// so a supplier that skipped a ship notification still walks
// Placed -> Shipped -> Delivered one version at a time.
func (s *Service) applyReportStep(so *fulfillment.SupplierOrder, report *fulfillment.StatusReport) (bool, error) {
	switch report.State {
	case fulfillment.StatePlaced:
		return false, nil
	case fulfillment.StateShipped:
		if so.State != fulfillment.StatePlaced {
			return false, nil
		}
		return true, so.MarkShipped(report.TrackingNumber)
	case fulfillment.StateDelivered:
		switch so.State {
		case fulfillment.StatePlaced:
			return true, so.MarkShipped(report.TrackingNumber)
		case fulfillment.StateShipped:
			return true, so.MarkDelivered()
		default:
			return false, nil
		}
	case fulfillment.StateFailed:
		return true, so.MarkFailed("cancelled on supplier side")
	default:
		return false, nil
	}
}

// Cancel cancels all non-terminal supplier orders of an order. The local
// transition always wins; the remote cancel is best-effort and its outcome
// is only logged.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) error {
	supplierOrders, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	for i := range supplierOrders {
		so := &supplierOrders[i]
		if so.State.IsTerminal() {
			continue
		}
		nativeID := so.SupplierNativeID

		if err := so.CancelLocally(reason); err != nil {
			continue
		}
		if err := s.repo.Save(ctx, so); err != nil {
			s.logger.Error("persisting cancelled supplier order",
				zap.String("supplier_order_id", so.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.publishEvents(ctx, so)

		if nativeID != "" {
			s.remoteCancel(ctx, so, nativeID)
		}
	}

	s.projectOrderStatus(ctx, orderID)
	return nil
}

func (s *Service) remoteCancel(ctx context.Context, so *fulfillment.SupplierOrder, nativeID string) {
	supplier, err := s.directory.Resolve(so.SupplierID)
	if err != nil {
		return
	}
	adapter, err := s.suppliers.GetAdapter(supplier.Code)
	if err != nil {
		return
	}
	accepted, err := adapter.Cancel(ctx, nativeID)
	if err != nil {
		s.logger.Warn("remote cancel failed",
			zap.String("supplier_order_id", so.ID.String()),
			zap.Error(err),
		)
		return
	}
	if !accepted {
		s.logger.Warn("supplier declined cancellation",
			zap.String("supplier_order_id", so.ID.String()),
			zap.String("supplier_native_id", nativeID),
		)
	}
}

// RetryFailed re-enters a failed supplier order into the pipeline and
// dispatches it again
func (s *Service) RetryFailed(ctx context.Context, supplierOrderID uuid.UUID) (*DispatchResult, error) {
	so, err := s.repo.FindByID(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	if err := so.Retry(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, so); err != nil {
		return nil, err
	}

	o, err := s.orderRepo.FindByID(ctx, so.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.CanDispatch() {
		return nil, ErrDispatchNotAllowed
	}

	result := &DispatchResult{OrderID: o.ID}
	result.Suppliers = append(result.Suppliers, s.dispatchSupplier(ctx, o, so.SupplierID))
	s.projectOrderStatus(ctx, o.ID)
	return result, nil
}

// SweepStuck re-drives supplier orders that sat untouched: placements that
// never resolved are failed and retried, shipped orders get a status poll
func (s *Service) SweepStuck(ctx context.Context, stuckAfter time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-stuckAfter)
	stuck, err := s.repo.FindStuck(ctx, []fulfillment.State{fulfillment.StatePlacing, fulfillment.StateShipped}, cutoff, limit)
	if err != nil {
		return 0, err
	}

	redriven := 0
	for i := range stuck {
		so := &stuck[i]
		switch so.State {
		case fulfillment.StatePlacing:
			// A worker died mid-placement. Supplier-side idempotency on the
			// reference makes a fresh attempt safe.
			if err := so.MarkFailed("placement attempt never resolved"); err != nil {
				continue
			}
			if err := s.repo.Save(ctx, so); err != nil {
				continue
			}
			if _, err := s.RetryFailed(ctx, so.ID); err != nil {
				s.logger.Warn("re-driving stuck placement failed",
					zap.String("supplier_order_id", so.ID.String()),
					zap.Error(err),
				)
				continue
			}
			redriven++
		case fulfillment.StateShipped:
			if _, err := s.AdvanceStatus(ctx, so.ID); err != nil {
				s.logger.Warn("polling stuck shipment failed",
					zap.String("supplier_order_id", so.ID.String()),
					zap.Error(err),
				)
				continue
			}
			redriven++
		}
	}
	if len(stuck) > 0 {
		s.logger.Info("stuck supplier order sweep finished",
			zap.Int("found", len(stuck)),
			zap.Int("redriven", redriven),
		)
	}
	return redriven, nil
}

// ListByOrder returns the supplier orders spawned by an order
func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfillment.SupplierOrder, error) {
	return s.repo.FindByOrder(ctx, orderID)
}

// projectOrderStatus recomputes the order-level fulfillment status from the
// states of its supplier orders
func (s *Service) projectOrderStatus(ctx context.Context, orderID uuid.UUID) {
	supplierOrders, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil || len(supplierOrders) == 0 {
		return
	}

	allDelivered := true
	anyProgress := false
	for i := range supplierOrders {
		switch supplierOrders[i].State {
		case fulfillment.StateDelivered:
			anyProgress = true
		case fulfillment.StateShipped:
			anyProgress = true
			allDelivered = false
		default:
			allDelivered = false
		}
	}

	target := order.FulfillmentStatusDispatching
	if allDelivered {
		target = order.FulfillmentStatusFulfilled
	} else if anyProgress {
		target = order.FulfillmentStatusPartial
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return
	}
	if o.FulfillmentStatus == target || o.FulfillmentStatus == order.FulfillmentStatusQuotaExceeded {
		return
	}
	if err := o.SetFulfillmentStatus(target); err != nil {
		return
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		s.logger.Error("persisting order fulfillment projection",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) publishEvents(ctx context.Context, so *fulfillment.SupplierOrder) {
	events := so.GetDomainEvents()
	so.ClearDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("publishing supplier order events failed", zap.Error(err))
	}
}

func placementDraft(so *fulfillment.SupplierOrder, o *order.Order) *fulfillment.PlacementDraft {
	draft := &fulfillment.PlacementDraft{
		Reference:     so.ID,
		RecipientName: o.Customer.Name,
		AddressL1:     o.Customer.AddressL1,
		AddressL2:     o.Customer.AddressL2,
		City:          o.Customer.City,
		Region:        o.Customer.Region,
		PostalCode:    o.Customer.PostalCode,
		Country:       o.Customer.Country,
		Phone:         o.Customer.Phone,
	}
	for _, item := range o.ItemsForSupplier(so.SupplierID) {
		draft.Items = append(draft.Items, fulfillment.PlacementItem{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			UnitCost:   item.UnitPrice,
		})
	}
	return draft
}

func decimalSum(items []order.LineItem) (sum decimal.Decimal) {
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

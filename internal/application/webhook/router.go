package webhook

import (
	"context"
	"fmt"

	ledgersvc "github.com/dropship/backend/internal/application/ledger"
	"github.com/dropship/backend/internal/application/ordersync"
	"github.com/dropship/backend/internal/domain/webhook"
	"go.uber.org/zap"
)

// Router interprets an accepted webhook event against the application
// services responsible for its source
type Router interface {
	// Route interprets one event. A nil return marks the event processed;
	// an error schedules a retry.
	Route(ctx context.Context, e *webhook.Event) error
}

// storefront webhook sources feed the order sync engine
var storefrontSources = map[string]struct{}{
	"shopify":     {},
	"woocommerce": {},
	"ebay":        {},
}

// payment webhook sources feed the settlement ledger
var paymentSources = map[string]struct{}{
	"stripe":   {},
	"paypal":   {},
	"payoneer": {},
	"wise":     {},
}

// payoutRefPaths are tried in order to locate the provider payout reference
var payoutRefPaths = []string{"data.object.id", "resource.payout_item_id", "payout_id", "reference"}

// payoutFailurePaths are tried in order to extract a failure reason
var payoutFailurePaths = []string{"data.object.failure_message", "resource.errors.name", "failure_reason"}

// DefaultRouter routes storefront events into order sync and payment
// events into withdrawal settlement
type DefaultRouter struct {
	sync   *ordersync.Service
	ledger *ledgersvc.Service
	logger *zap.Logger
}

// NewDefaultRouter creates the standard source-based router
func NewDefaultRouter(sync *ordersync.Service, ledger *ledgersvc.Service, logger *zap.Logger) *DefaultRouter {
	return &DefaultRouter{sync: sync, ledger: ledger, logger: logger}
}

// Route dispatches the event to the service owning its source
func (r *DefaultRouter) Route(ctx context.Context, e *webhook.Event) error {
	if _, ok := storefrontSources[e.Source]; ok {
		return r.routeStorefront(ctx, e)
	}
	if _, ok := paymentSources[e.Source]; ok {
		return r.routePayment(ctx, e)
	}
	return fmt.Errorf("no handler for webhook source %q", e.Source)
}

func (r *DefaultRouter) routeStorefront(ctx context.Context, e *webhook.Event) error {
	if e.StoreID == nil {
		return fmt.Errorf("storefront event %s carries no store", e.DedupKey)
	}
	o, outcome, err := r.sync.IngestPayload(ctx, *e.StoreID, e.RawPayload)
	if err != nil {
		return err
	}
	r.logger.Debug("storefront webhook interpreted",
		zap.String("dedup_key", e.DedupKey),
		zap.String("order_id", o.ID.String()),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

func (r *DefaultRouter) routePayment(ctx context.Context, e *webhook.Event) error {
	providerRef := firstString(e.RawPayload, payoutRefPaths)

	switch classifyPayoutEvent(e.EventType) {
	case payoutCompleted:
		if providerRef == "" {
			return fmt.Errorf("payment event %s carries no payout reference", e.DedupKey)
		}
		return r.ledger.ConfirmWithdrawal(ctx, e.Source, providerRef)
	case payoutFailed:
		if providerRef == "" {
			return fmt.Errorf("payment event %s carries no payout reference", e.DedupKey)
		}
		reason := firstString(e.RawPayload, payoutFailurePaths)
		if reason == "" {
			reason = "payout failed on provider side"
		}
		return r.ledger.FailWithdrawal(ctx, e.Source, providerRef, reason)
	default:
		// Not a payout lifecycle event. Acknowledge and move on.
		r.logger.Debug("ignoring payment webhook",
			zap.String("source", e.Source),
			zap.String("event_type", e.EventType),
		)
		return nil
	}
}

type payoutEventKind int

const (
	payoutIrrelevant payoutEventKind = iota
	payoutCompleted
	payoutFailed
)

// classifyPayoutEvent maps provider event types onto the payout lifecycle.
// Stripe uses "payout.paid"/"payout.failed", PayPal "PAYMENT.PAYOUTS-ITEM.*".
func classifyPayoutEvent(eventType string) payoutEventKind {
	switch eventType {
	case "payout.paid", "payout.completed", "transfer.paid",
		"PAYMENT.PAYOUTS-ITEM.SUCCEEDED":
		return payoutCompleted
	case "payout.failed", "payout.canceled", "transfer.failed",
		"PAYMENT.PAYOUTS-ITEM.FAILED", "PAYMENT.PAYOUTS-ITEM.RETURNED":
		return payoutFailed
	default:
		return payoutIrrelevant
	}
}

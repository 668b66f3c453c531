// Package ledger implements the settlement operations on top of the
// append-only transaction log.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReconcileReport compares the cached balance projection against a fold of
// the full transaction log
type ReconcileReport struct {
	StoreID          uuid.UUID           `json:"store_id"`
	CachedAvailable  decimal.Decimal     `json:"cached_available"`
	FoldedAvailable  decimal.Decimal     `json:"folded_available"`
	CachedWithdrawn  decimal.Decimal     `json:"cached_withdrawn"`
	FoldedWithdrawn  decimal.Decimal     `json:"folded_withdrawn"`
	Drift            ledger.BalanceDrift `json:"drift"`
	Reconciled       bool                `json:"reconciled"`
	TransactionCount int                 `json:"transaction_count"`
}

// Service implements the settlement ledger operations. Every balance
// mutation goes through the repository's single locked write path.
type Service struct {
	repo      ledger.Repository
	storeRepo store.Repository
	logger    *zap.Logger
}

// NewService creates a ledger service
func NewService(repo ledger.Repository, storeRepo store.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, storeRepo: storeRepo, logger: logger}
}

// RecordSale credits a paid order's total to the store balance. At most one
// sale transaction exists per order; re-delivery of the payment signal
// returns the existing entry.
func (s *Service) RecordSale(ctx context.Context, storeID, orderID uuid.UUID, amount decimal.Decimal, currency string) (*ledger.Transaction, error) {
	if existing, err := s.repo.FindSaleByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, fmt.Errorf("checking existing sale: %w", err)
	}

	var recorded *ledger.Transaction
	_, err := s.repo.AppendInBalanceTx(ctx, storeID, currency, func(_ *ledger.Balance) ([]*ledger.Transaction, error) {
		// Re-check under the balance row lock: two concurrent paid
		// signals for the same order serialize here, and the loser
		// must return the winner's entry instead of crediting again.
		if existing, err := s.repo.FindSaleByOrder(ctx, orderID); err == nil {
			recorded = existing
			return nil, nil
		} else if !errors.Is(err, ledger.ErrTransactionNotFound) {
			return nil, fmt.Errorf("checking existing sale: %w", err)
		}

		tx, err := ledger.NewSaleTransaction(storeID, orderID, amount, currency)
		if err != nil {
			return nil, err
		}
		recorded = tx
		return []*ledger.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale recorded",
		zap.String("store_id", storeID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("amount", amount.String()),
	)
	return recorded, nil
}

// RecordRefund debits a refunded sale from the store balance
func (s *Service) RecordRefund(ctx context.Context, storeID, orderID uuid.UUID, amount decimal.Decimal, currency string) (*ledger.Transaction, error) {
	var recorded *ledger.Transaction
	_, err := s.repo.AppendInBalanceTx(ctx, storeID, currency, func(_ *ledger.Balance) ([]*ledger.Transaction, error) {
		tx, err := ledger.NewRefundTransaction(storeID, orderID, amount, currency)
		if err != nil {
			return nil, err
		}
		recorded = tx
		return []*ledger.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// RecordFee debits a platform or provider fee
func (s *Service) RecordFee(ctx context.Context, storeID uuid.UUID, amount decimal.Decimal, currency, provider, memo string) (*ledger.Transaction, error) {
	var recorded *ledger.Transaction
	_, err := s.repo.AppendInBalanceTx(ctx, storeID, currency, func(_ *ledger.Balance) ([]*ledger.Transaction, error) {
		tx, err := ledger.NewFeeTransaction(storeID, amount, currency, provider, memo)
		if err != nil {
			return nil, err
		}
		recorded = tx
		return []*ledger.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// RequestWithdrawal debits a payout request from the store balance. The
// provider must be enabled for the store's plan tier, the amount must meet
// the provider minimum, and the available balance must cover the debit.
// The eligibility and balance checks run under the balance row lock, so two
// concurrent requests cannot both pass on the same funds.
func (s *Service) RequestWithdrawal(ctx context.Context, storeID uuid.UUID, amount decimal.Decimal, currency, providerName string) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "request_withdrawal",
		attribute.String("store_id", storeID.String()),
		attribute.String("provider", providerName),
	)
	defer span.End()

	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	provider, err := ledger.ProviderFor(providerName)
	if err != nil {
		return nil, err
	}
	if !provider.EnabledFor(st.PlanTier) {
		return nil, ledger.ErrProviderNotEnabled
	}
	if amount.LessThan(provider.MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum for %s is %s", ledger.ErrBelowMinimum, provider.Name, provider.MinWithdrawal)
	}

	var recorded *ledger.Transaction
	_, err = s.repo.AppendInBalanceTx(ctx, storeID, currency, func(b *ledger.Balance) ([]*ledger.Transaction, error) {
		if !b.CanDebit(amount) {
			return nil, shared.ErrInsufficientBalance
		}
		tx, err := ledger.NewWithdrawalTransaction(storeID, amount, currency, provider.Name)
		if err != nil {
			return nil, err
		}
		recorded = tx
		return []*ledger.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.String("store_id", storeID.String()),
		zap.String("transaction_id", recorded.ID.String()),
		zap.String("provider", provider.Name),
		zap.String("amount", amount.String()),
	)
	return recorded, nil
}

// ConfirmWithdrawal settles a requested withdrawal after the payout provider
// confirms it. Re-delivered confirmations are no-ops.
func (s *Service) ConfirmWithdrawal(ctx context.Context, providerName, providerRef string) error {
	tx, err := s.repo.FindWithdrawalByProviderRef(ctx, providerName, providerRef)
	if err != nil {
		return err
	}

	err = s.repo.UpdateTransactionStatus(ctx, tx.ID, ledger.TxStatusRequested, ledger.TxStatusCompleted)
	if errors.Is(err, ledger.ErrWithdrawalNotRequested) {
		current, readErr := s.repo.FindTransaction(ctx, tx.ID)
		if readErr != nil {
			return readErr
		}
		if current.Status == ledger.TxStatusCompleted {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	s.logger.Info("withdrawal confirmed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("provider", providerName),
	)
	return nil
}

// FailWithdrawal marks a requested withdrawal as rejected by the provider
// and re-credits the debited amount with a compensating adjustment. The
// status transition gates the compensation, so a re-delivered failure
// signal cannot re-credit twice.
func (s *Service) FailWithdrawal(ctx context.Context, providerName, providerRef, reason string) error {
	tx, err := s.repo.FindWithdrawalByProviderRef(ctx, providerName, providerRef)
	if err != nil {
		return err
	}

	err = s.repo.UpdateTransactionStatus(ctx, tx.ID, ledger.TxStatusRequested, ledger.TxStatusFailed)
	if errors.Is(err, ledger.ErrWithdrawalNotRequested) {
		current, readErr := s.repo.FindTransaction(ctx, tx.ID)
		if readErr != nil {
			return readErr
		}
		if current.Status == ledger.TxStatusFailed {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	_, err = s.repo.AppendInBalanceTx(ctx, tx.StoreID, tx.Currency, func(_ *ledger.Balance) ([]*ledger.Transaction, error) {
		compensation, err := ledger.NewCompensation(tx)
		if err != nil {
			return nil, err
		}
		return []*ledger.Transaction{compensation}, nil
	})
	if err != nil {
		return fmt.Errorf("appending compensation for %s: %w", tx.ID, err)
	}

	s.logger.Warn("withdrawal failed, funds re-credited",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("provider", providerName),
		zap.String("reason", reason),
	)
	return nil
}

// GetBalance reads the cached balance projection
func (s *Service) GetBalance(ctx context.Context, storeID uuid.UUID) (*ledger.Balance, error) {
	return s.repo.GetBalance(ctx, storeID)
}

// ListTransactions lists a store's transactions, newest first
func (s *Service) ListTransactions(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]ledger.Transaction, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.FindTransactionsByStore(ctx, storeID, limit, offset)
}

// Reconcile folds the store's full transaction log and compares it to the
// cached projection. Drift is reported, never silently repaired.
func (s *Service) Reconcile(ctx context.Context, storeID uuid.UUID) (*ReconcileReport, error) {
	balance, err := s.repo.GetBalance(ctx, storeID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.AllTransactionsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	folded := ledger.FoldTransactions(storeID, balance.Currency, txs)
	drift := balance.Drift(folded)
	if !drift.IsZero() {
		s.logger.Error("balance drift detected",
			zap.String("store_id", storeID.String()),
			zap.String("available_drift", drift.Available.String()),
			zap.String("pending_drift", drift.Pending.String()),
			zap.String("withdrawn_drift", drift.TotalWithdrawn.String()),
		)
	}

	return &ReconcileReport{
		StoreID:          storeID,
		CachedAvailable:  balance.Available,
		FoldedAvailable:  folded.Available,
		CachedWithdrawn:  balance.TotalWithdrawn,
		FoldedWithdrawn:  folded.TotalWithdrawn,
		Drift:            drift,
		Reconciled:       drift.IsZero(),
		TransactionCount: len(txs),
	}, nil
}

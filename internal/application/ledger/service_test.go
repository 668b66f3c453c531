package ledger

import (
	"context"
	"testing"

	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedgerRepository is an in-memory repository with the same locking
// semantics as the real one: every append folds into the balance projection
// in the same step.
type fakeLedgerRepository struct {
	balances     map[uuid.UUID]*ledger.Balance
	transactions []*ledger.Transaction

	// beforeTx, when set, runs once at the start of AppendInBalanceTx to
	// model a competing writer that commits before this one takes the
	// balance row lock.
	beforeTx func()
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{balances: make(map[uuid.UUID]*ledger.Balance)}
}

func (r *fakeLedgerRepository) AppendInBalanceTx(_ context.Context, storeID uuid.UUID, currency string, fn func(b *ledger.Balance) ([]*ledger.Transaction, error)) (*ledger.Balance, error) {
	if hook := r.beforeTx; hook != nil {
		r.beforeTx = nil
		hook()
	}
	b, ok := r.balances[storeID]
	if !ok {
		b = ledger.NewBalance(storeID, currency)
		r.balances[storeID] = b
	}
	txs, err := fn(b)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		r.transactions = append(r.transactions, tx)
		b.Apply(tx)
	}
	return b, nil
}

func (r *fakeLedgerRepository) GetBalance(_ context.Context, storeID uuid.UUID) (*ledger.Balance, error) {
	b, ok := r.balances[storeID]
	if !ok {
		return nil, ledger.ErrBalanceNotFound
	}
	return b, nil
}

func (r *fakeLedgerRepository) FindTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	for _, tx := range r.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) FindTransactionsByStore(_ context.Context, storeID uuid.UUID, limit, offset int) ([]ledger.Transaction, int64, error) {
	var out []ledger.Transaction
	for _, tx := range r.transactions {
		if tx.StoreID == storeID {
			out = append(out, *tx)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLedgerRepository) FindSaleByOrder(_ context.Context, orderID uuid.UUID) (*ledger.Transaction, error) {
	for _, tx := range r.transactions {
		if tx.Type == ledger.TypeSale && tx.RelatedOrderID != nil && *tx.RelatedOrderID == orderID {
			return tx, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) FindWithdrawalByProviderRef(_ context.Context, provider, providerRef string) (*ledger.Transaction, error) {
	for _, tx := range r.transactions {
		if tx.Type == ledger.TypeWithdrawal && tx.Provider == provider && tx.ProviderRef == providerRef {
			return tx, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) UpdateTransactionStatus(_ context.Context, id uuid.UUID, from, to ledger.TransactionStatus) error {
	for _, tx := range r.transactions {
		if tx.ID == id && tx.Status == from {
			tx.Status = to
			return nil
		}
	}
	return ledger.ErrWithdrawalNotRequested
}

func (r *fakeLedgerRepository) AllTransactionsByStore(_ context.Context, storeID uuid.UUID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range r.transactions {
		if tx.StoreID == storeID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

type mockStoreRepository struct {
	mock.Mock
}

func (m *mockStoreRepository) Save(ctx context.Context, s *store.Store) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *mockStoreRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, includeDisconnected bool) ([]store.Store, error) {
	args := m.Called(ctx, accountID, includeDisconnected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Store), args.Error(1)
}

func (m *mockStoreRepository) CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(t *testing.T, tier store.PlanTier) (*Service, *fakeLedgerRepository, *store.Store) {
	t.Helper()
	st, err := store.NewStore(uuid.New(), "Shop", store.PlatformShopify, "cred-1", tier)
	require.NoError(t, err)

	storeRepo := new(mockStoreRepository)
	storeRepo.On("FindByID", mock.Anything, st.ID).Return(st, nil)

	repo := newFakeLedgerRepository()
	return NewService(repo, storeRepo, zap.NewNop()), repo, st
}

func TestRecordSale_Idempotent(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	orderID := uuid.New()
	amount := decimal.RequireFromString("59.98")

	first, err := svc.RecordSale(context.Background(), st.ID, orderID, amount, "USD")
	require.NoError(t, err)

	second, err := svc.RecordSale(context.Background(), st.ID, orderID, amount, "USD")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	balance, err := repo.GetBalance(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, "59.98", balance.Available.String())
	assert.Len(t, repo.transactions, 1)
}

func TestRecordSale_ConcurrentDuplicateSignalsCreditOnce(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	orderID := uuid.New()
	amount := decimal.RequireFromString("59.98")

	// the webhook processor lands the same paid signal after our
	// existing-sale check but before we take the balance lock
	var winner *ledger.Transaction
	repo.beforeTx = func() {
		var err error
		winner, err = svc.RecordSale(context.Background(), st.ID, orderID, amount, "USD")
		require.NoError(t, err)
	}

	loser, err := svc.RecordSale(context.Background(), st.ID, orderID, amount, "USD")
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, loser.ID)

	balance, err := repo.GetBalance(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, "59.98", balance.Available.String())
	assert.Len(t, repo.transactions, 1)
}

func TestRequestWithdrawal(t *testing.T) {
	t.Run("rejects overdraw", func(t *testing.T) {
		svc, repo, st := newTestService(t, store.PlanTierStarter)
		_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
		require.NoError(t, err)

		_, err = svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(500), "USD", "paypal")
		assert.ErrorIs(t, err, shared.ErrInsufficientBalance)

		balance, err := repo.GetBalance(context.Background(), st.ID)
		require.NoError(t, err)
		assert.Equal(t, "300", balance.Available.String())
	})

	t.Run("debits available and tracks withdrawn", func(t *testing.T) {
		svc, repo, st := newTestService(t, store.PlanTierStarter)
		_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
		require.NoError(t, err)

		tx, err := svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(120), "USD", "paypal")
		require.NoError(t, err)
		assert.Equal(t, ledger.TxStatusRequested, tx.Status)
		assert.Equal(t, "-120", tx.Amount.String())

		balance, err := repo.GetBalance(context.Background(), st.ID)
		require.NoError(t, err)
		assert.Equal(t, "180", balance.Available.String())
		assert.Equal(t, "120", balance.TotalWithdrawn.String())
	})

	t.Run("rejects below provider minimum", func(t *testing.T) {
		svc, _, st := newTestService(t, store.PlanTierStarter)
		_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
		require.NoError(t, err)

		_, err = svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(5), "USD", "paypal")
		assert.ErrorIs(t, err, ledger.ErrBelowMinimum)
	})

	t.Run("rejects provider not enabled for tier", func(t *testing.T) {
		svc, _, st := newTestService(t, store.PlanTierFree)
		_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
		require.NoError(t, err)

		_, err = svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(100), "USD", "wise")
		assert.ErrorIs(t, err, ledger.ErrProviderNotEnabled)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		svc, _, st := newTestService(t, store.PlanTierStarter)
		_, err := svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(100), "USD", "hawala")
		assert.ErrorIs(t, err, ledger.ErrUnknownProvider)
	})
}

func TestConfirmWithdrawal_Idempotent(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
	require.NoError(t, err)
	tx, err := svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(120), "USD", "paypal")
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmWithdrawal(context.Background(), "paypal", tx.ProviderRef))
	require.NoError(t, svc.ConfirmWithdrawal(context.Background(), "paypal", tx.ProviderRef))

	confirmed, err := repo.FindTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxStatusCompleted, confirmed.Status)

	balance, err := repo.GetBalance(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, "180", balance.Available.String())
}

func TestFailWithdrawal_CompensatesOnce(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
	require.NoError(t, err)
	tx, err := svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(120), "USD", "paypal")
	require.NoError(t, err)

	require.NoError(t, svc.FailWithdrawal(context.Background(), "paypal", tx.ProviderRef, "account closed"))
	require.NoError(t, svc.FailWithdrawal(context.Background(), "paypal", tx.ProviderRef, "account closed"))

	balance, err := repo.GetBalance(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, "300", balance.Available.String())
	assert.Equal(t, "0", balance.TotalWithdrawn.String())

	// sale + withdrawal + exactly one compensation
	assert.Len(t, repo.transactions, 3)
	compensation := repo.transactions[2]
	assert.Equal(t, ledger.TypeAdjustment, compensation.Type)
	require.NotNil(t, compensation.CompensatesID)
	assert.Equal(t, tx.ID, *compensation.CompensatesID)
}

func TestConfirmAfterFailIsRejected(t *testing.T) {
	svc, _, st := newTestService(t, store.PlanTierStarter)
	_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
	require.NoError(t, err)
	tx, err := svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(120), "USD", "paypal")
	require.NoError(t, err)

	require.NoError(t, svc.FailWithdrawal(context.Background(), "paypal", tx.ProviderRef, "rejected"))
	err = svc.ConfirmWithdrawal(context.Background(), "paypal", tx.ProviderRef)
	assert.ErrorIs(t, err, ledger.ErrWithdrawalNotRequested)
}

func TestReconcile(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
	require.NoError(t, err)
	_, err = svc.RecordFee(context.Background(), st.ID, decimal.NewFromInt(9), "USD", "platform", "monthly fee")
	require.NoError(t, err)

	report, err := svc.Reconcile(context.Background(), st.ID)
	require.NoError(t, err)
	assert.True(t, report.Reconciled)
	assert.Equal(t, "291", report.CachedAvailable.String())
	assert.Equal(t, 2, report.TransactionCount)

	// corrupt the cached projection and expect drift to be reported
	repo.balances[st.ID].Available = decimal.NewFromInt(999)
	report, err = svc.Reconcile(context.Background(), st.ID)
	require.NoError(t, err)
	assert.False(t, report.Reconciled)
	assert.Equal(t, "708", report.Drift.Available.String())
}

func TestReconcile_DetectsWithdrawnDrift(t *testing.T) {
	svc, repo, st := newTestService(t, store.PlanTierStarter)
	_, err := svc.RecordSale(context.Background(), st.ID, uuid.New(), decimal.NewFromInt(300), "USD")
	require.NoError(t, err)
	_, err = svc.RequestWithdrawal(context.Background(), st.ID, decimal.NewFromInt(120), "USD", "paypal")
	require.NoError(t, err)

	// corrupt only the withdrawn side; Available still matches the fold
	repo.balances[st.ID].TotalWithdrawn = decimal.NewFromInt(500)
	report, err := svc.Reconcile(context.Background(), st.ID)
	require.NoError(t, err)
	assert.False(t, report.Reconciled)
	assert.True(t, report.Drift.Available.IsZero())
	assert.Equal(t, "380", report.Drift.TotalWithdrawn.String())
	assert.Equal(t, "500", report.CachedWithdrawn.String())
	assert.Equal(t, "120", report.FoldedWithdrawn.String())
}

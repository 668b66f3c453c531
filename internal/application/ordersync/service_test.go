package ordersync

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	ledgersvc "github.com/dropship/backend/internal/application/ledger"
	quotasvc "github.com/dropship/backend/internal/application/quota"
	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/dropship/backend/internal/infrastructure/event"
	"github.com/dropship/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory fakes

type fakeStoreRepository struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*store.Store
}

func newFakeStoreRepository(stores ...*store.Store) *fakeStoreRepository {
	r := &fakeStoreRepository{stores: make(map[uuid.UUID]*store.Store)}
	for _, s := range stores {
		r.stores[s.ID] = s
	}
	return r
}

func (r *fakeStoreRepository) Save(_ context.Context, s *store.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.ID] = s
	return nil
}

func (r *fakeStoreRepository) FindByID(_ context.Context, id uuid.UUID) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, store.ErrStoreNotFound
	}
	return s, nil
}

func (r *fakeStoreRepository) FindByAccount(_ context.Context, _ uuid.UUID, _ bool) ([]store.Store, error) {
	return nil, nil
}

func (r *fakeStoreRepository) CountActiveByAccount(_ context.Context, _ uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.stores)), nil
}

type fakeOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *fakeOrderRepository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.orders {
		if id != o.ID && existing.StoreID == o.StoreID && existing.ExternalOrderID == o.ExternalOrderID {
			return shared.ErrAlreadyExists
		}
	}
	clone := *o
	r.orders[o.ID] = &clone
	return nil
}

func (r *fakeOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *fakeOrderRepository) FindByExternalID(_ context.Context, storeID uuid.UUID, externalOrderID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.StoreID == storeID && o.ExternalOrderID == externalOrderID {
			clone := *o
			return &clone, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepository) FindByStore(_ context.Context, storeID uuid.UUID, filter order.Filter) ([]order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.StoreID != storeID {
			continue
		}
		if filter.PaymentStatus != nil && o.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		out = append(out, *o)
	}
	if filter.Page > 1 {
		return nil, int64(len(out)), nil
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepository) CountForStoreSince(_ context.Context, storeID uuid.UUID, _ time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

// fakeLedgerRepository mirrors the real append semantics in memory
type fakeLedgerRepository struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]*ledger.Balance
	transactions []*ledger.Transaction
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{balances: make(map[uuid.UUID]*ledger.Balance)}
}

func (r *fakeLedgerRepository) AppendInBalanceTx(_ context.Context, storeID uuid.UUID, currency string, fn func(b *ledger.Balance) ([]*ledger.Transaction, error)) (*ledger.Balance, error) {
	r.mu.Lock()
	b, ok := r.balances[storeID]
	if !ok {
		b = ledger.NewBalance(storeID, currency)
		r.balances[storeID] = b
	}
	r.mu.Unlock()
	txs, err := fn(b)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range txs {
		r.transactions = append(r.transactions, tx)
		b.Apply(tx)
	}
	return b, nil
}

func (r *fakeLedgerRepository) GetBalance(_ context.Context, storeID uuid.UUID) (*ledger.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[storeID]
	if !ok {
		return nil, ledger.ErrBalanceNotFound
	}
	return b, nil
}

func (r *fakeLedgerRepository) FindTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) FindTransactionsByStore(_ context.Context, storeID uuid.UUID, _, _ int) ([]ledger.Transaction, int64, error) {
	return nil, 0, nil
}

func (r *fakeLedgerRepository) FindSaleByOrder(_ context.Context, orderID uuid.UUID) (*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.Type == ledger.TypeSale && tx.RelatedOrderID != nil && *tx.RelatedOrderID == orderID {
			return tx, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) FindWithdrawalByProviderRef(_ context.Context, _, _ string) (*ledger.Transaction, error) {
	return nil, ledger.ErrTransactionNotFound
}

func (r *fakeLedgerRepository) UpdateTransactionStatus(_ context.Context, _ uuid.UUID, _, _ ledger.TransactionStatus) error {
	return nil
}

func (r *fakeLedgerRepository) AllTransactionsByStore(_ context.Context, _ uuid.UUID) ([]ledger.Transaction, error) {
	return nil, nil
}

// fakeAdapter serves drafts keyed by external order ID
type fakeAdapter struct {
	platform store.Platform
	drafts   map[string]*order.Draft
}

func (a *fakeAdapter) Platform() store.Platform { return a.platform }

func (a *fakeAdapter) FetchOrder(_ context.Context, _ uuid.UUID, nativeID string) ([]byte, error) {
	if _, ok := a.drafts[nativeID]; !ok {
		return nil, storefront.ErrOrderNotFoundOnPlatform
	}
	return []byte(nativeID), nil
}

func (a *fakeAdapter) Parse(payload []byte) (*order.Draft, error) {
	draft, ok := a.drafts[string(payload)]
	if !ok {
		return nil, storefront.ErrMalformedPayload
	}
	clone := *draft
	return &clone, nil
}

type fakeRegistry struct {
	adapter storefront.PlatformAdapter
}

func (r *fakeRegistry) GetAdapter(platform store.Platform) (storefront.PlatformAdapter, error) {
	if r.adapter.Platform() != platform {
		return nil, storefront.ErrPlatformNotRegistered
	}
	return r.adapter, nil
}

func (r *fakeRegistry) ListAdapters() []storefront.PlatformAdapter {
	return []storefront.PlatformAdapter{r.adapter}
}

func paidDraft(externalID string, revision int64) *order.Draft {
	total, _ := valueobject.NewMoneyFromString("59.98", "USD")
	return &order.Draft{
		ExternalOrderID:  externalID,
		ProviderRevision: revision,
		Customer:         order.CustomerContact{Name: "Ada Buyer", Country: "US"},
		Items: []order.LineItem{
			{SKU: "SKU-1", Title: "Enamel Mug", SupplierID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("29.99")},
		},
		Total:         total,
		PaymentStatus: order.PaymentStatusPaid,
	}
}

type testEnv struct {
	svc        *Service
	storeRepo  *fakeStoreRepository
	orderRepo  *fakeOrderRepository
	ledgerRepo *fakeLedgerRepository
	adapter    *fakeAdapter
	store      *store.Store
}

func newTestEnv(t *testing.T, tier store.PlanTier) *testEnv {
	t.Helper()
	st, err := store.NewStore(uuid.New(), "Shop", store.PlatformShopify, "cred-1", tier)
	require.NoError(t, err)

	storeRepo := newFakeStoreRepository(st)
	orderRepo := newFakeOrderRepository()
	ledgerRepo := newFakeLedgerRepository()
	adapter := &fakeAdapter{platform: store.PlatformShopify, drafts: make(map[string]*order.Draft)}
	logger := zap.NewNop()

	svc := NewService(
		storeRepo,
		orderRepo,
		&fakeRegistry{adapter: adapter},
		ledgersvc.NewService(ledgerRepo, storeRepo, logger),
		quotasvc.NewService(storeRepo, orderRepo, logger),
		event.NewInMemoryEventBus(logger),
		lock.NewInMemoryKeyedLock(),
		logger,
	)
	return &testEnv{svc: svc, storeRepo: storeRepo, orderRepo: orderRepo, ledgerRepo: ledgerRepo, adapter: adapter, store: st}
}

func TestIngestPayload_CreatesOrderAndRecordsSale(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	env.adapter.drafts["1001"] = paidDraft("1001", 1)

	o, outcome, err := env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "1001", o.ExternalOrderID)
	assert.Equal(t, order.FulfillmentStatusUnfulfilled, o.FulfillmentStatus)

	balance, err := env.ledgerRepo.GetBalance(context.Background(), env.store.ID)
	require.NoError(t, err)
	assert.Equal(t, "59.98", balance.Available.String())
}

func TestIngestPayload_OutOfOrderRevisions(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	env.adapter.drafts["1001"] = paidDraft("1001", 5)

	_, outcome, err := env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	// older revision arrives late and is discarded
	stale := paidDraft("1001", 3)
	stale.Items[0].Quantity = 99
	env.adapter.drafts["1001"] = stale
	_, outcome, err = env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)

	persisted, err := env.orderRepo.FindByExternalID(context.Background(), env.store.ID, "1001")
	require.NoError(t, err)
	assert.Equal(t, 2, persisted.Items[0].Quantity)
	assert.Equal(t, int64(5), persisted.ProviderRevision)

	// a strictly newer revision applies and bumps the version
	newer := paidDraft("1001", 7)
	newer.Items[0].Quantity = 3
	env.adapter.drafts["1001"] = newer
	_, outcome, err = env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	persisted, err = env.orderRepo.FindByExternalID(context.Background(), env.store.ID, "1001")
	require.NoError(t, err)
	assert.Equal(t, 3, persisted.Items[0].Quantity)
	assert.Equal(t, int64(7), persisted.ProviderRevision)
	assert.Equal(t, 2, persisted.Version)
}

func TestIngestPayload_SaleEmittedOnce(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	env.adapter.drafts["1001"] = paidDraft("1001", 1)
	_, _, err := env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)

	env.adapter.drafts["1001"] = paidDraft("1001", 2)
	_, _, err = env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	require.NoError(t, err)

	balance, err := env.ledgerRepo.GetBalance(context.Background(), env.store.ID)
	require.NoError(t, err)
	assert.Equal(t, "59.98", balance.Available.String())
	assert.Len(t, env.ledgerRepo.transactions, 1)
}

func TestIngestPayload_QuotaExceededSuppressesDispatch(t *testing.T) {
	env := newTestEnv(t, store.PlanTierFree)

	// fill the free tier's monthly order ceiling
	for i := 0; i < 50; i++ {
		id := "seed-" + strconv.Itoa(i)
		draft := paidDraft(id, 1)
		o, err := order.NewOrderFromDraft(env.store.ID, draft)
		require.NoError(t, err)
		o.ClearDomainEvents()
		require.NoError(t, env.orderRepo.Save(context.Background(), o))
	}

	env.adapter.drafts["over"] = paidDraft("over", 1)
	o, outcome, err := env.svc.IngestPayload(context.Background(), env.store.ID, []byte("over"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, order.FulfillmentStatusQuotaExceeded, o.FulfillmentStatus)
	assert.False(t, o.CanDispatch())

	// the order data is recorded regardless
	persisted, err := env.orderRepo.FindByExternalID(context.Background(), env.store.ID, "over")
	require.NoError(t, err)
	assert.Equal(t, "over", persisted.ExternalOrderID)
}

func TestIngestPayload_RejectsSuspendedStore(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	env.store.Suspend()
	require.NoError(t, env.storeRepo.Save(context.Background(), env.store))

	_, _, err := env.svc.IngestPayload(context.Background(), env.store.ID, []byte("1001"))
	assert.ErrorIs(t, err, store.ErrStoreSuspended)
}

func TestSyncOrder_FetchesAndApplies(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	env.adapter.drafts["777"] = paidDraft("777", 4)

	o, outcome, err := env.svc.SyncOrder(context.Background(), env.store.ID, "777")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, int64(4), o.ProviderRevision)

	_, _, err = env.svc.SyncOrder(context.Background(), env.store.ID, "missing")
	assert.ErrorIs(t, err, storefront.ErrOrderNotFoundOnPlatform)
}

func TestSyncStore(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)

	// a pending-payment order whose platform copy has since been paid
	pendingDraft := paidDraft("2001", 1)
	pendingDraft.PaymentStatus = order.PaymentStatusPending
	o, err := order.NewOrderFromDraft(env.store.ID, pendingDraft)
	require.NoError(t, err)
	o.ClearDomainEvents()
	require.NoError(t, env.orderRepo.Save(context.Background(), o))

	env.adapter.drafts["2001"] = paidDraft("2001", 2)

	report, err := env.svc.SyncStore(context.Background(), env.store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Failed)

	persisted, err := env.orderRepo.FindByExternalID(context.Background(), env.store.ID, "2001")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, persisted.PaymentStatus)

	st, err := env.storeRepo.FindByID(context.Background(), env.store.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, st.Status)
}

func TestSyncStore_LockAdmitsOneRun(t *testing.T) {
	env := newTestEnv(t, store.PlanTierPro)
	locks := lock.NewInMemoryKeyedLock()
	env.svc.locks = locks

	release, acquired, err := locks.TryAcquire(context.Background(), "sync:"+env.store.ID.String(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	defer release()

	_, err = env.svc.SyncStore(context.Background(), env.store.ID)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

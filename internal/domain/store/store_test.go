package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	accountID := uuid.New()
	s, err := NewStore(accountID, "My Shop", PlatformShopify, "cred-ref-1", PlanTierStarter)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, accountID, s.AccountID)
	assert.True(t, s.IsOperational())

	events := s.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeStoreConnected, events[0].EventType())
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(uuid.New(), "Shop", Platform("MAGENTO"), "cred", PlanTierFree)
	assert.ErrorIs(t, err, ErrInvalidPlatform)

	_, err = NewStore(uuid.New(), "Shop", PlatformEbay, "", PlanTierFree)
	assert.ErrorIs(t, err, ErrMissingCredentialsRef)
}

func TestNewStore_UnknownTierFallsBackToFree(t *testing.T) {
	s, err := NewStore(uuid.New(), "Shop", PlatformWooCommerce, "cred", PlanTier("LEGACY"))
	require.NoError(t, err)
	assert.Equal(t, PlanTierFree, s.PlanTier)
}

func TestSyncLifecycle(t *testing.T) {
	s, err := NewStore(uuid.New(), "Shop", PlatformShopify, "cred", PlanTierFree)
	require.NoError(t, err)

	require.NoError(t, s.BeginSync())
	assert.Equal(t, StatusSyncing, s.Status)

	s.FinishSync(false)
	assert.Equal(t, StatusError, s.Status)
	assert.True(t, s.IsOperational(), "an errored store still syncs")

	require.NoError(t, s.BeginSync())
	s.FinishSync(true)
	assert.Equal(t, StatusActive, s.Status)
}

func TestDisconnect_SoftDelete(t *testing.T) {
	s, err := NewStore(uuid.New(), "Shop", PlatformShopify, "cred", PlanTierFree)
	require.NoError(t, err)
	s.ClearDomainEvents()

	require.NoError(t, s.Disconnect())
	assert.Equal(t, StatusDisconnected, s.Status)
	require.NotNil(t, s.DisconnectedAt)
	assert.False(t, s.IsOperational())
	assert.ErrorIs(t, s.Disconnect(), ErrStoreDisconnected)

	require.Len(t, s.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeStoreDisconnected, s.GetDomainEvents()[0].EventType())
}

func TestDisconnectedStoreCannotSync(t *testing.T) {
	s, err := NewStore(uuid.New(), "Shop", PlatformShopify, "cred", PlanTierFree)
	require.NoError(t, err)
	require.NoError(t, s.Disconnect())
	assert.ErrorIs(t, s.BeginSync(), ErrStoreDisconnected)
}

func TestPlanFor(t *testing.T) {
	tests := []struct {
		tier      PlanTier
		maxStores int
		maxOrders int
	}{
		{PlanTierFree, 1, 50},
		{PlanTierStarter, 3, 500},
		{PlanTierGrowth, 10, 5000},
		{PlanTierPro, 50, 50000},
		{PlanTier("UNKNOWN"), 1, 50}, // falls back to free
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			p := PlanFor(tt.tier)
			assert.Equal(t, tt.maxStores, p.MaxStores)
			assert.Equal(t, tt.maxOrders, p.MaxOrdersPerMonth)
		})
	}
}

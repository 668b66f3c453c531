package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// StoreModelSQLite is a SQLite-compatible version of StoreModel for testing
type StoreModelSQLite struct {
	ID             string `gorm:"primaryKey"`
	AccountID      string `gorm:"not null;index"`
	Name           string `gorm:"not null"`
	Platform       string `gorm:"not null"`
	CredentialsRef string `gorm:"not null"`
	PlanTier       string `gorm:"not null;default:'FREE'"`
	Status         string `gorm:"not null;default:'ACTIVE'"`
	DisconnectedAt *time.Time
	Version        int `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (StoreModelSQLite) TableName() string {
	return "stores"
}

func setupStoreTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&StoreModelSQLite{}))
	return db
}

func TestGormStoreRepository_SaveAndFind(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewGormStoreRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	s, err := store.NewStore(accountID, "My Shop", store.PlatformShopify, "vault:cred-1", store.PlanTierStarter)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Shop", found.Name)
	assert.Equal(t, store.PlatformShopify, found.Platform)
	assert.Equal(t, store.PlanTierStarter, found.PlanTier)
	assert.Equal(t, store.StatusActive, found.Status)
	assert.Equal(t, 1, found.Version)

	t.Run("returns ErrStoreNotFound for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrStoreNotFound)
	})

	t.Run("updates and bumps version", func(t *testing.T) {
		require.NoError(t, found.ChangePlan(store.PlanTierGrowth))
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, store.PlanTierGrowth, again.PlanTier)
		assert.Equal(t, 2, again.Version)
	})

	t.Run("rejects stale writer", func(t *testing.T) {
		stale := *s // still at version 1
		stale.Name = "Old Name"
		err := repo.Save(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormStoreRepository_FindByAccount(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewGormStoreRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	active, err := store.NewStore(accountID, "Active Shop", store.PlatformShopify, "vault:a", store.PlanTierFree)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	gone, err := store.NewStore(accountID, "Closed Shop", store.PlatformWooCommerce, "vault:b", store.PlanTierFree)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, gone))
	require.NoError(t, gone.Disconnect())
	require.NoError(t, repo.Save(ctx, gone))

	other, err := store.NewStore(uuid.New(), "Other Account", store.PlatformEbay, "vault:c", store.PlanTierFree)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("excludes disconnected stores by default", func(t *testing.T) {
		stores, err := repo.FindByAccount(ctx, accountID, false)
		require.NoError(t, err)
		require.Len(t, stores, 1)
		assert.Equal(t, "Active Shop", stores[0].Name)
	})

	t.Run("includes disconnected stores on request", func(t *testing.T) {
		stores, err := repo.FindByAccount(ctx, accountID, true)
		require.NoError(t, err)
		assert.Len(t, stores, 2)
	})

	t.Run("counts only connected stores", func(t *testing.T) {
		count, err := repo.CountActiveByAccount(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormStoreRepository_ListOperational(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewGormStoreRepository(db)
	ctx := context.Background()

	active, err := store.NewStore(uuid.New(), "Active Shop", store.PlatformShopify, "vault:a", store.PlanTierFree)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	errored, err := store.NewStore(uuid.New(), "Flaky Shop", store.PlatformWooCommerce, "vault:b", store.PlanTierFree)
	require.NoError(t, err)
	errored.FinishSync(false)
	require.NoError(t, repo.Save(ctx, errored))

	suspended, err := store.NewStore(uuid.New(), "Paused Shop", store.PlatformEbay, "vault:c", store.PlanTierFree)
	require.NoError(t, err)
	suspended.Suspend()
	require.NoError(t, repo.Save(ctx, suspended))

	stores, err := repo.ListOperational(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 2)

	names := []string{stores[0].Name, stores[1].Name}
	assert.Contains(t, names, "Active Shop")
	assert.Contains(t, names, "Flaky Shop")
}

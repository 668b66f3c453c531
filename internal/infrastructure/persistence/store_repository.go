package persistence

import (
	"context"
	"errors"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStoreRepository implements store.Repository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// Save creates or updates a store with optimistic locking on updates
func (r *GormStoreRepository) Save(ctx context.Context, s *store.Store) error {
	model := models.StoreModelFromDomain(s)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StoreModel{}).
		Where("id = ?", s.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).Model(&models.StoreModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version-1).
		Updates(map[string]interface{}{
			"name":            model.Name,
			"credentials_ref": model.CredentialsRef,
			"plan_tier":       model.PlanTier,
			"status":          model.Status,
			"disconnected_at": model.DisconnectedAt,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a store by its ID, including disconnected ones
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount finds all stores owned by an account
func (r *GormStoreRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, includeDisconnected bool) ([]store.Store, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if !includeDisconnected {
		query = query.Where("status <> ?", store.StatusDisconnected.String())
	}

	var rows []models.StoreModel
	if err := query.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	stores := make([]store.Store, len(rows))
	for i := range rows {
		stores[i] = *rows[i].ToDomain()
	}
	return stores, nil
}

// ListOperational lists stores eligible for periodic synchronization
func (r *GormStoreRepository) ListOperational(ctx context.Context) ([]store.Store, error) {
	var rows []models.StoreModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			store.StatusActive.String(),
			store.StatusError.String(),
		}).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stores := make([]store.Store, len(rows))
	for i := range rows {
		stores[i] = *rows[i].ToDomain()
	}
	return stores, nil
}

// CountActiveByAccount counts connected stores for an account
func (r *GormStoreRepository) CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StoreModel{}).
		Where("account_id = ? AND status <> ?", accountID, store.StatusDisconnected.String()).
		Count(&count).Error
	return count, err
}

var _ store.Repository = (*GormStoreRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// isUniqueViolation detects a unique-constraint violation across drivers
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// Save creates or updates an order. Creation races on the
// (store_id, external_order_id) unique index surface as
// shared.ErrAlreadyExists; updates are guarded by the monotonic version.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model, err := models.OrderModelFromDomain(o)
	if err != nil {
		return err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", o.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, o.Version-1).
		Updates(map[string]interface{}{
			"customer":           model.CustomerJSON,
			"items":              model.ItemsJSON,
			"total_amount":       model.TotalAmount,
			"currency":           model.Currency,
			"payment_status":     model.PaymentStatus,
			"fulfillment_status": model.FulfillmentStatus,
			"provider_revision":  model.ProviderRevision,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds an order by its internal ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByExternalID finds an order by its platform-native ID within a store
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalOrderID string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_order_id = ?", storeID, externalOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByStore lists orders for a store with filtering and pagination
func (r *GormOrderRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("store_id = ?", storeID)
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", filter.PaymentStatus.String())
	}
	if filter.FulfillmentStatus != nil {
		query = query.Where("fulfillment_status = ?", filter.FulfillmentStatus.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var rows []models.OrderModel
	if err := query.Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, nil
}

// CountForStoreSince counts orders created for a store at or after the given instant
func (r *GormOrderRepository) CountForStoreSince(ctx context.Context, storeID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("store_id = ? AND created_at >= ?", storeID, since).
		Count(&count).Error
	return count, err
}

var _ order.Repository = (*GormOrderRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierOrderRepository implements fulfillment.Repository using GORM
type GormSupplierOrderRepository struct {
	db *gorm.DB
}

// NewGormSupplierOrderRepository creates a new GormSupplierOrderRepository
func NewGormSupplierOrderRepository(db *gorm.DB) *GormSupplierOrderRepository {
	return &GormSupplierOrderRepository{db: db}
}

// Save creates or updates a supplier order with optimistic locking on updates
func (r *GormSupplierOrderRepository) Save(ctx context.Context, so *fulfillment.SupplierOrder) error {
	model := models.SupplierOrderModelFromDomain(so)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SupplierOrderModel{}).
		Where("id = ?", so.ID).Count(&count).Error; err != nil {
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

	result := r.db.WithContext(ctx).Model(&models.SupplierOrderModel{}).
		Where("id = ? AND version = ?", so.ID, so.Version-1).
		Updates(map[string]interface{}{
			"supplier_native_id": model.SupplierNativeID,
			"state":              model.State,
			"tracking_number":    model.TrackingNumber,
			"cost":               model.Cost,
			"attempt_count":      model.AttemptCount,
			"last_error":         model.LastError,
			"placed_at":          model.PlacedAt,
			"shipped_at":         model.ShippedAt,
			"delivered_at":       model.DeliveredAt,
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

// FindByID finds a supplier order by its ID
func (r *GormSupplierOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.SupplierOrder, error) {
	var model models.SupplierOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrSupplierOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrder finds all supplier orders spawned by an order
func (r *GormSupplierOrderRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfillment.SupplierOrder, error) {
	var rows []models.SupplierOrderModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]fulfillment.SupplierOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindOpenByOrderAndSupplier finds the single non-terminal supplier order
// for an (order, supplier) pair
func (r *GormSupplierOrderRepository) FindOpenByOrderAndSupplier(ctx context.Context, orderID, supplierID uuid.UUID) (*fulfillment.SupplierOrder, error) {
	var model models.SupplierOrderModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND supplier_id = ? AND state NOT IN ?",
			orderID, supplierID,
			[]string{fulfillment.StateDelivered.String(), fulfillment.StateFailed.String()}).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrSupplierOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNativeID finds a supplier order by the supplier-assigned ID
func (r *GormSupplierOrderRepository) FindByNativeID(ctx context.Context, supplierID uuid.UUID, supplierNativeID string) (*fulfillment.SupplierOrder, error) {
	var model models.SupplierOrderModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_native_id = ?", supplierID, supplierNativeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrSupplierOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindStuck finds supplier orders sitting in the given states since before the cutoff
func (r *GormSupplierOrderRepository) FindStuck(ctx context.Context, states []fulfillment.State, updatedBefore time.Time, limit int) ([]fulfillment.SupplierOrder, error) {
	stateStrings := make([]string, len(states))
	for i, s := range states {
		stateStrings[i] = s.String()
	}

	var rows []models.SupplierOrderModel
	if err := r.db.WithContext(ctx).
		Where("state IN ? AND updated_at < ?", stateStrings, updatedBefore).
		Order("updated_at asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]fulfillment.SupplierOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ fulfillment.Repository = (*GormSupplierOrderRepository)(nil)

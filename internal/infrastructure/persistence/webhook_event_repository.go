package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWebhookEventRepository implements webhook.Repository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Insert persists a new event. A dedup-key unique violation surfaces as
// webhook.ErrDuplicateEvent so concurrent duplicate deliveries survive
// the race.
func (r *GormWebhookEventRepository) Insert(ctx context.Context, e *webhook.Event) error {
	model := models.WebhookEventModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return webhook.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

// Update persists processing-state changes of an existing event
func (r *GormWebhookEventRepository) Update(ctx context.Context, e *webhook.Event) error {
	model := models.WebhookEventModelFromDomain(e)
	result := r.db.WithContext(ctx).Model(&models.WebhookEventModel{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"store_id":        model.StoreID,
			"status":          model.Status,
			"attempt_count":   model.AttemptCount,
			"last_error":      model.LastError,
			"next_attempt_at": model.NextAttemptAt,
			"processed_at":    model.ProcessedAt,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return webhook.ErrEventNotFound
	}
	return nil
}

// FindByID finds an event by ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDedupKey finds an event by its dedup key
func (r *GormWebhookEventRepository) FindByDedupKey(ctx context.Context, dedupKey string) (*webhook.Event, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("dedup_key = ?", dedupKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ClaimDue atomically claims up to limit due pending events. Rows are
// selected FOR UPDATE SKIP LOCKED and each claim checks the pending
// status again, so competing processor instances never pick up the
// same event.
func (r *GormWebhookEventRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*webhook.Event, error) {
	var claimed []*webhook.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.WebhookEventModel
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?",
				webhook.StatusPending.String(), now).
			Order("next_attempt_at asc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		claimed = make([]*webhook.Event, 0, len(rows))
		for i := range rows {
			result := tx.Model(&models.WebhookEventModel{}).
				Where("id = ? AND status = ?", rows[i].ID, webhook.StatusPending.String()).
				Updates(map[string]interface{}{
					"status":     webhook.StatusProcessing.String(),
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// a competing claimer transitioned the row first
				continue
			}
			e := rows[i].ToDomain()
			e.Status = webhook.StatusProcessing
			claimed = append(claimed, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// FindByStatus lists events by processing status, newest first
func (r *GormWebhookEventRepository) FindByStatus(ctx context.Context, status webhook.Status, limit, offset int) ([]*webhook.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookEventModel{}).
		Where("status = ?", status.String())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WebhookEventModel
	if err := query.Order("received_at desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	events := make([]*webhook.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, total, nil
}

// DeleteProcessedBefore prunes processed events older than the cutoff
func (r *GormWebhookEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", webhook.StatusProcessed.String(), cutoff).
		Delete(&models.WebhookEventModel{})
	return result.RowsAffected, result.Error
}

var _ webhook.Repository = (*GormWebhookEventRepository)(nil)

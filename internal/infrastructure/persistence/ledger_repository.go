package persistence

import (
	"context"
	"errors"

	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerRepository implements ledger.Repository using GORM.
//
// All balance mutations funnel through AppendInBalanceTx, which takes a
// SELECT ... FOR UPDATE on the store's balance row. Concurrent withdrawals
// and sale credits for the same store therefore serialize at the database,
// and the projection can never drift from the appended log.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// AppendInBalanceTx runs fn under the store's balance row lock
func (r *GormLedgerRepository) AppendInBalanceTx(ctx context.Context, storeID uuid.UUID, currency string, fn func(b *ledger.Balance) ([]*ledger.Transaction, error)) (*ledger.Balance, error) {
	var updated *ledger.Balance

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.BalanceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("store_id = ?", storeID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = *models.BalanceModelFromDomain(ledger.NewBalance(storeID, currency))
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			// Re-read under the lock so a racing creator serializes here.
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("store_id = ?", storeID).
				First(&model).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		balance := model.ToDomain()
		txs, err := fn(balance)
		if err != nil {
			return err
		}

		for _, t := range txs {
			if err := tx.Create(models.TransactionModelFromDomain(t)).Error; err != nil {
				return err
			}
			balance.Apply(t)
		}

		if err := tx.Model(&models.BalanceModel{}).
			Where("store_id = ?", storeID).
			Updates(map[string]interface{}{
				"available":       balance.Available,
				"pending":         balance.Pending,
				"total_withdrawn": balance.TotalWithdrawn,
				"updated_at":      balance.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		updated = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetBalance reads the cached projection without locking
func (r *GormLedgerRepository) GetBalance(ctx context.Context, storeID uuid.UUID) (*ledger.Balance, error) {
	var model models.BalanceModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrBalanceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTransaction finds one transaction by ID
func (r *GormLedgerRepository) FindTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTransactionsByStore lists a store's transactions, newest first
func (r *GormLedgerRepository) FindTransactionsByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]ledger.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("store_id = ?", storeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TransactionModel
	if err := query.Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]ledger.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, total, nil
}

// FindSaleByOrder finds an existing sale transaction for an order
func (r *GormLedgerRepository) FindSaleByOrder(ctx context.Context, orderID uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("related_order_id = ? AND type = ?", orderID, ledger.TypeSale.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindWithdrawalByProviderRef finds a withdrawal by the provider's echo reference
func (r *GormLedgerRepository) FindWithdrawalByProviderRef(ctx context.Context, provider, providerRef string) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("type = ? AND provider = ? AND provider_ref = ?",
			ledger.TypeWithdrawal.String(), provider, providerRef).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateTransactionStatus transitions a withdrawal's settlement status.
// The compare-and-set on the previous status makes confirmation webhooks
// idempotent: a second delivery finds no row in the from state.
func (r *GormLedgerRepository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to ledger.TransactionStatus) error {
	result := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ? AND status = ?", id, from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrWithdrawalNotRequested
	}
	return nil
}

// AllTransactionsByStore returns the full log for reconciliation folds,
// oldest first
func (r *GormLedgerRepository) AllTransactionsByStore(ctx context.Context, storeID uuid.UUID) ([]ledger.Transaction, error) {
	var rows []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	txs := make([]ledger.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}

var _ ledger.Repository = (*GormLedgerRepository)(nil)

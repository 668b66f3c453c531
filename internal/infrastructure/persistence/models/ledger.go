package models

import (
	"time"

	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for ledger transactions. Rows
// are append-only: amounts are never updated, only the withdrawal status
// column transitions.
type TransactionModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type           string          `gorm:"type:varchar(20);not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Provider       string          `gorm:"type:varchar(50);index:idx_transactions_provider_ref,priority:1"`
	ProviderRef    string          `gorm:"type:varchar(100);index:idx_transactions_provider_ref,priority:2"`
	Status         string          `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	RelatedOrderID *uuid.UUID      `gorm:"type:uuid;index"`
	CompensatesID  *uuid.UUID      `gorm:"type:uuid"`
	Memo           string          `gorm:"type:varchar(500)"`
	CreatedAt      time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		ID:             m.ID,
		StoreID:        m.StoreID,
		Type:           ledger.TransactionType(m.Type),
		Amount:         m.Amount,
		Currency:       m.Currency,
		Provider:       m.Provider,
		ProviderRef:    m.ProviderRef,
		Status:         ledger.TransactionStatus(m.Status),
		RelatedOrderID: m.RelatedOrderID,
		CompensatesID:  m.CompensatesID,
		Memo:           m.Memo,
		CreatedAt:      m.CreatedAt,
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:             t.ID,
		StoreID:        t.StoreID,
		Type:           t.Type.String(),
		Amount:         t.Amount,
		Currency:       t.Currency,
		Provider:       t.Provider,
		ProviderRef:    t.ProviderRef,
		Status:         t.Status.String(),
		RelatedOrderID: t.RelatedOrderID,
		CompensatesID:  t.CompensatesID,
		Memo:           t.Memo,
		CreatedAt:      t.CreatedAt,
	}
}

// BalanceModel is the persistence model for the cached balance projection.
// Every mutation happens under the row lock taken by AppendInBalanceTx.
type BalanceModel struct {
	StoreID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Available      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Pending        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalWithdrawn decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BalanceModel) TableName() string {
	return "balances"
}

// ToDomain converts the persistence model to a domain Balance
func (m *BalanceModel) ToDomain() *ledger.Balance {
	return &ledger.Balance{
		StoreID:        m.StoreID,
		Currency:       m.Currency,
		Available:      m.Available,
		Pending:        m.Pending,
		TotalWithdrawn: m.TotalWithdrawn,
		UpdatedAt:      m.UpdatedAt,
	}
}

// BalanceModelFromDomain creates a new persistence model from a domain Balance
func BalanceModelFromDomain(b *ledger.Balance) *BalanceModel {
	return &BalanceModel{
		StoreID:        b.StoreID,
		Currency:       b.Currency,
		Available:      b.Available,
		Pending:        b.Pending,
		TotalWithdrawn: b.TotalWithdrawn,
		UpdatedAt:      b.UpdatedAt,
	}
}

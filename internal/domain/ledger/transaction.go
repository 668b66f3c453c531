package ledger

import (
	"errors"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound is returned when a transaction cannot be located
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrBalanceNotFound is returned when no balance row exists for a store
	ErrBalanceNotFound = errors.New("ledger: balance not found")
	// ErrZeroAmount is returned when a transaction carries a zero amount
	ErrZeroAmount = errors.New("ledger: transaction amount must not be zero")
	// ErrWithdrawalNotRequested is returned when confirming or failing a
	// withdrawal that is not in the requested state
	ErrWithdrawalNotRequested = errors.New("ledger: withdrawal is not in requested state")
)

// TransactionType classifies a ledger transaction
type TransactionType string

const (
	// TypeSale credits the store balance when an order is paid
	TypeSale TransactionType = "SALE"
	// TypeWithdrawal debits the store balance towards a payout provider
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	// TypeFee debits platform or provider fees
	TypeFee TransactionType = "FEE"
	// TypeRefund debits a refunded sale
	TypeRefund TransactionType = "REFUND"
	// TypeAdjustment is a compensating entry; corrections are always new
	// transactions, never edits of existing ones
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeSale, TypeWithdrawal, TypeFee, TypeRefund, TypeAdjustment:
		return true
	default:
		return false
	}
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// TransactionStatus is the settlement status of a transaction
type TransactionStatus string

const (
	// TxStatusCompleted is the default for sales and fees
	TxStatusCompleted TransactionStatus = "COMPLETED"
	// TxStatusRequested is the initial state of a withdrawal
	TxStatusRequested TransactionStatus = "REQUESTED"
	// TxStatusFailed marks a withdrawal rejected by the payout provider
	TxStatusFailed TransactionStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TxStatusCompleted, TxStatusRequested, TxStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// Transaction is one immutable entry in the append-only settlement log.
// Amount is signed: credits are positive, debits negative. Once created a
// transaction is never edited; corrections append compensating entries.
type Transaction struct {
	ID       uuid.UUID
	StoreID  uuid.UUID
	Type     TransactionType
	Amount   decimal.Decimal
	Currency string
	Provider string
	// ProviderRef is the reference the payout provider echoes back in its
	// confirmation webhook; set for withdrawals only
	ProviderRef    string
	Status         TransactionStatus
	RelatedOrderID *uuid.UUID
	// CompensatesID links a compensating entry to the transaction it reverses
	CompensatesID *uuid.UUID
	Memo          string
	CreatedAt     time.Time
}

// newTransaction builds a transaction after amount validation
func newTransaction(storeID uuid.UUID, txType TransactionType, amount decimal.Decimal, currency, provider string, status TransactionStatus) (*Transaction, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("unknown transaction type " + string(txType))
	}
	if currency == "" {
		return nil, shared.NewValidationError("currency is required")
	}
	return &Transaction{
		ID:        uuid.New(),
		StoreID:   storeID,
		Type:      txType,
		Amount:    amount,
		Currency:  currency,
		Provider:  provider,
		Status:    status,
		CreatedAt: time.Now(),
	}, nil
}

// NewSaleTransaction credits a paid order's total to the store balance
func NewSaleTransaction(storeID, orderID uuid.UUID, amount decimal.Decimal, currency string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("sale amount must be positive")
	}
	tx, err := newTransaction(storeID, TypeSale, amount, currency, "", TxStatusCompleted)
	if err != nil {
		return nil, err
	}
	tx.RelatedOrderID = &orderID
	return tx, nil
}

// NewWithdrawalTransaction debits a requested withdrawal from the store balance
func NewWithdrawalTransaction(storeID uuid.UUID, amount decimal.Decimal, currency, provider string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("withdrawal amount must be positive")
	}
	tx, err := newTransaction(storeID, TypeWithdrawal, amount.Neg(), currency, provider, TxStatusRequested)
	if err != nil {
		return nil, err
	}
	tx.ProviderRef = tx.ID.String()
	return tx, nil
}

// NewFeeTransaction debits a fee
func NewFeeTransaction(storeID uuid.UUID, amount decimal.Decimal, currency, provider, memo string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("fee amount must be positive")
	}
	tx, err := newTransaction(storeID, TypeFee, amount.Neg(), currency, provider, TxStatusCompleted)
	if err != nil {
		return nil, err
	}
	tx.Memo = memo
	return tx, nil
}

// NewRefundTransaction debits a refunded sale
func NewRefundTransaction(storeID, orderID uuid.UUID, amount decimal.Decimal, currency string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("refund amount must be positive")
	}
	tx, err := newTransaction(storeID, TypeRefund, amount.Neg(), currency, "", TxStatusCompleted)
	if err != nil {
		return nil, err
	}
	tx.RelatedOrderID = &orderID
	return tx, nil
}

// NewCompensation re-credits the exact amount of a failed withdrawal.
// It is the only way a failed debit returns funds; the original transaction
// is never edited.
func NewCompensation(original *Transaction) (*Transaction, error) {
	tx, err := newTransaction(original.StoreID, TypeAdjustment, original.Amount.Neg(), original.Currency, original.Provider, TxStatusCompleted)
	if err != nil {
		return nil, err
	}
	id := original.ID
	tx.CompensatesID = &id
	tx.Memo = "compensation for " + string(original.Type) + " " + original.ID.String()
	return tx, nil
}

// IsCredit returns true if the transaction increases the balance
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

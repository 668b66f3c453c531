package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the cached projection of a store's transaction log. It must
// always equal the fold of all transactions for the store; every mutation
// goes through Apply inside the same database transaction that appends the
// entry. No code path writes Available or Pending directly.
type Balance struct {
	StoreID        uuid.UUID
	Currency       string
	Available      decimal.Decimal
	Pending        decimal.Decimal
	TotalWithdrawn decimal.Decimal
	UpdatedAt      time.Time
}

// NewBalance creates an empty balance projection for a store
func NewBalance(storeID uuid.UUID, currency string) *Balance {
	return &Balance{
		StoreID:        storeID,
		Currency:       currency,
		Available:      decimal.Zero,
		Pending:        decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		UpdatedAt:      time.Now(),
	}
}

// Apply folds one transaction into the projection.
//
// Withdrawal funds leave immediately: the debit reduces Available and is
// tracked in TotalWithdrawn; nothing is parked in Pending. A compensating
// adjustment for a failed withdrawal re-credits Available and unwinds
// TotalWithdrawn by the same amount.
func (b *Balance) Apply(tx *Transaction) {
	b.Available = b.Available.Add(tx.Amount)
	switch {
	case tx.Type == TypeWithdrawal:
		b.TotalWithdrawn = b.TotalWithdrawn.Add(tx.Amount.Neg())
	case tx.Type == TypeAdjustment && tx.CompensatesID != nil:
		b.TotalWithdrawn = b.TotalWithdrawn.Sub(tx.Amount)
	}
	b.UpdatedAt = time.Now()
}

// CanDebit reports whether Available covers a debit of amount
func (b *Balance) CanDebit(amount decimal.Decimal) bool {
	return b.Available.GreaterThanOrEqual(amount)
}

// FoldTransactions rebuilds a balance projection from scratch. Used by the
// reconciliation check to verify the cached row.
func FoldTransactions(storeID uuid.UUID, currency string, txs []Transaction) *Balance {
	b := NewBalance(storeID, currency)
	for i := range txs {
		b.Apply(&txs[i])
	}
	return b
}

// BalanceDrift holds the per-component difference between the cached
// projection and a freshly folded one. All components must be zero for
// the projection to count as reconciled; a withdrawal recorded without
// its balance update shows up in TotalWithdrawn even when Available
// happens to match.
type BalanceDrift struct {
	Available      decimal.Decimal `json:"available"`
	Pending        decimal.Decimal `json:"pending"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
}

// IsZero reports whether every component matches the fold
func (d BalanceDrift) IsZero() bool {
	return d.Available.IsZero() && d.Pending.IsZero() && d.TotalWithdrawn.IsZero()
}

// Drift compares the cached projection against a freshly folded one
func (b *Balance) Drift(folded *Balance) BalanceDrift {
	return BalanceDrift{
		Available:      b.Available.Sub(folded.Available),
		Pending:        b.Pending.Sub(folded.Pending),
		TotalWithdrawn: b.TotalWithdrawn.Sub(folded.TotalWithdrawn),
	}
}

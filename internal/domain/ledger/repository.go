package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for the settlement ledger.
//
// AppendInBalanceTx is the single write path: it locks the store's balance
// row, hands the current projection to fn, and commits the appended
// transactions together with the updated projection in one database
// transaction. All balance-mutating operations for a store serialize on
// that row lock.
type Repository interface {
	// AppendInBalanceTx runs fn under the store's balance row lock.
	// fn returns the transactions to append; the repository applies each to
	// the locked projection and persists both atomically. A missing balance
	// row is created before fn runs.
	AppendInBalanceTx(ctx context.Context, storeID uuid.UUID, currency string, fn func(b *Balance) ([]*Transaction, error)) (*Balance, error)

	// GetBalance reads the cached projection without locking
	GetBalance(ctx context.Context, storeID uuid.UUID) (*Balance, error)

	// FindTransaction finds one transaction by ID
	FindTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindTransactionsByStore lists a store's transactions, newest first
	FindTransactionsByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]Transaction, int64, error)

	// FindSaleByOrder finds an existing sale transaction for an order.
	// Guards the idempotent sale emission on order payment.
	FindSaleByOrder(ctx context.Context, orderID uuid.UUID) (*Transaction, error)

	// FindWithdrawalByProviderRef finds a requested withdrawal by the
	// reference the payout provider echoes back in its webhook
	FindWithdrawalByProviderRef(ctx context.Context, provider, providerRef string) (*Transaction, error)

	// UpdateTransactionStatus transitions a withdrawal's settlement status.
	// Only the status column changes; amounts are immutable.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to TransactionStatus) error

	// AllTransactionsByStore streams the full log for reconciliation folds
	AllTransactionsByStore(ctx context.Context, storeID uuid.UUID) ([]Transaction, error)
}

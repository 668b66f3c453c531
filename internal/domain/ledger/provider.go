package ledger

import (
	"errors"

	"github.com/dropship/backend/internal/domain/store"
	"github.com/shopspring/decimal"
)

var (
	// ErrProviderNotEnabled is returned when a payout provider is not
	// available for the store's plan tier
	ErrProviderNotEnabled = errors.New("ledger: withdrawal provider not enabled for plan")
	// ErrUnknownProvider is returned for an unrecognized payout provider
	ErrUnknownProvider = errors.New("ledger: unknown withdrawal provider")
	// ErrBelowMinimum is returned when the amount is below the provider minimum
	ErrBelowMinimum = errors.New("ledger: amount below provider minimum")
)

// WithdrawalProvider describes a payout provider and its policy
type WithdrawalProvider struct {
	Name          string
	MinWithdrawal decimal.Decimal
	// MinTier is the lowest plan tier the provider is enabled for
	MinTier store.PlanTier
}

// tierRank orders plan tiers for provider eligibility checks
var tierRank = map[store.PlanTier]int{
	store.PlanTierFree:    0,
	store.PlanTierStarter: 1,
	store.PlanTierGrowth:  2,
	store.PlanTierPro:     3,
}

// EnabledFor reports whether the provider is available on a plan tier
func (p WithdrawalProvider) EnabledFor(tier store.PlanTier) bool {
	return tierRank[tier] >= tierRank[p.MinTier]
}

// defaultProviders is the built-in payout provider table
var defaultProviders = map[string]WithdrawalProvider{
	"paypal":   {Name: "paypal", MinWithdrawal: decimal.NewFromInt(10), MinTier: store.PlanTierFree},
	"stripe":   {Name: "stripe", MinWithdrawal: decimal.NewFromInt(5), MinTier: store.PlanTierFree},
	"payoneer": {Name: "payoneer", MinWithdrawal: decimal.NewFromInt(50), MinTier: store.PlanTierStarter},
	"wise":     {Name: "wise", MinWithdrawal: decimal.NewFromInt(20), MinTier: store.PlanTierGrowth},
}

// ProviderFor returns the payout provider by name, or ErrUnknownProvider
func ProviderFor(name string) (WithdrawalProvider, error) {
	p, ok := defaultProviders[name]
	if !ok {
		return WithdrawalProvider{}, ErrUnknownProvider
	}
	return p, nil
}

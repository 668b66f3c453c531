package store

// PlanTier identifies a subscription plan level
type PlanTier string

const (
	// PlanTierFree is the entry tier
	PlanTierFree PlanTier = "FREE"
	// PlanTierStarter is the first paid tier
	PlanTierStarter PlanTier = "STARTER"
	// PlanTierGrowth is the mid paid tier
	PlanTierGrowth PlanTier = "GROWTH"
	// PlanTierPro is the top tier
	PlanTierPro PlanTier = "PRO"
)

// IsValid returns true if the plan tier is valid
func (t PlanTier) IsValid() bool {
	switch t {
	case PlanTierFree, PlanTierStarter, PlanTierGrowth, PlanTierPro:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlanTier
func (t PlanTier) String() string {
	return string(t)
}

// Plan is the static resource ceiling configuration for a tier.
// The core never mutates plans; they are configuration.
type Plan struct {
	Tier              PlanTier
	MaxStores         int
	MaxProducts       int
	MaxOrdersPerMonth int
}

// defaultPlans is the built-in plan table, used when no override is configured
var defaultPlans = map[PlanTier]Plan{
	PlanTierFree:    {Tier: PlanTierFree, MaxStores: 1, MaxProducts: 25, MaxOrdersPerMonth: 50},
	PlanTierStarter: {Tier: PlanTierStarter, MaxStores: 3, MaxProducts: 250, MaxOrdersPerMonth: 500},
	PlanTierGrowth:  {Tier: PlanTierGrowth, MaxStores: 10, MaxProducts: 2500, MaxOrdersPerMonth: 5000},
	PlanTierPro:     {Tier: PlanTierPro, MaxStores: 50, MaxProducts: 25000, MaxOrdersPerMonth: 50000},
}

// PlanFor returns the plan for a tier, falling back to the free plan for
// unknown tiers
func PlanFor(tier PlanTier) Plan {
	if p, ok := defaultPlans[tier]; ok {
		return p
	}
	return defaultPlans[PlanTierFree]
}

// AllPlans returns every built-in plan
func AllPlans() []Plan {
	plans := make([]Plan, 0, len(defaultPlans))
	for _, t := range []PlanTier{PlanTierFree, PlanTierStarter, PlanTierGrowth, PlanTierPro} {
		plans = append(plans, defaultPlans[t])
	}
	return plans
}

package subscription

import (
	"context"
	"strings"
)

// Plan describes a purchasable subscription plan. ProviderPlanID is the
// Whop plan id (plan_xxx) used for checkout and for mapping webhook
// memberships back onto a catalog entry.
type Plan struct {
	ProviderPlanID string          `yaml:"provider_plan_id"`
	Name           string          `yaml:"name"`
	LookupKey      string          `yaml:"lookup_key"`
	Price          Money           `yaml:"price"`
	Interval       BillingInterval `yaml:"interval"`
	Features       []string        `yaml:"features"`
	TrialDays      int             `yaml:"trial_days"`
}

// Catalog is the set of known plans keyed by lookup key
// (monthly/quarterly/yearly/lifetime).
type Catalog map[string]Plan

// ByProviderID finds the catalog entry for a Whop plan id.
func (c Catalog) ByProviderID(planID string) (Plan, bool) {
	if planID == "" {
		return Plan{}, false
	}
	for _, p := range c {
		if p.ProviderPlanID == planID {
			return p, true
		}
	}
	return Plan{}, false
}

// ResolveInterval determines a membership's billing interval.
//
// The catalog lookup by provider plan id is authoritative. Substring
// matching on the product title exists only as a fallback for plan ids that
// predate the catalog; it mirrors how the provider names its products
// ("TradeLog Plus Monthly") and defaults to month when nothing matches.
func (c Catalog) ResolveInterval(providerPlanID, productTitle string) BillingInterval {
	if plan, ok := c.ByProviderID(providerPlanID); ok {
		return plan.Interval
	}
	return InferInterval(productTitle)
}

// InferInterval guesses a billing interval from a plan or product name.
func InferInterval(name string) BillingInterval {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "monthly"):
		return IntervalMonth
	case strings.Contains(lower, "quarterly"):
		return IntervalQuarter
	case strings.Contains(lower, "yearly"):
		return IntervalYear
	case strings.Contains(lower, "lifetime"):
		return IntervalLifetime
	default:
		return IntervalMonth
	}
}

// PlanSource loads the plan catalog.
type PlanSource interface {
	Load(ctx context.Context) (Catalog, error)
}

// StaticSource serves a fixed catalog, useful for tests and for services
// that compile their plans in.
type StaticSource Catalog

func (s StaticSource) Load(_ context.Context) (Catalog, error) {
	return Catalog(s), nil
}

// DefaultCatalog returns the built-in plan set. Provider plan ids default to
// the production values and are overridable per environment through the YAML
// source.
func DefaultCatalog() Catalog {
	return Catalog{
		"monthly": {
			ProviderPlanID: "plan_55MGVOxft6Ipz",
			Name:           "Monthly",
			LookupKey:      "monthly",
			Price:          Money{Amount: 2900, Currency: "USD"},
			Interval:       IntervalMonth,
			Features:       []string{"Full platform access", "Unlimited accounts", "Priority support"},
		},
		"quarterly": {
			ProviderPlanID: "plan_LqkGRNIhM2A2z",
			Name:           "Quarterly",
			LookupKey:      "quarterly",
			Price:          Money{Amount: 7500, Currency: "USD"},
			Interval:       IntervalQuarter,
			Features:       []string{"Full platform access", "Unlimited accounts", "Priority support", "Save 15%"},
		},
		"yearly": {
			ProviderPlanID: "plan_JWhvqxtgDDqFf",
			Name:           "Yearly",
			LookupKey:      "yearly",
			Price:          Money{Amount: 25000, Currency: "USD"},
			Interval:       IntervalYear,
			Features:       []string{"Full platform access", "Unlimited accounts", "Priority support", "Save 30%"},
		},
		"lifetime": {
			Name:      "Lifetime",
			LookupKey: "lifetime",
			Price:     Money{Amount: 49900, Currency: "USD"},
			Interval:  IntervalLifetime,
			Features:  []string{"Lifetime access", "All future updates", "Priority support", "Exclusive features"},
		},
	}
}

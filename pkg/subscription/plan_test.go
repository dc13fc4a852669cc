package subscription_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/billing/pkg/subscription"
)

func TestCatalogResolveInterval(t *testing.T) {
	t.Parallel()

	catalog := subscription.DefaultCatalog()

	t.Run("catalog lookup wins over title", func(t *testing.T) {
		t.Parallel()
		// The title says monthly but the plan id belongs to yearly.
		got := catalog.ResolveInterval("plan_JWhvqxtgDDqFf", "TradeLog Plus Monthly")
		assert.Equal(t, subscription.IntervalYear, got)
	})

	t.Run("unknown plan id falls back to title keywords", func(t *testing.T) {
		t.Parallel()
		got := catalog.ResolveInterval("plan_unknown", "TradeLog Plus Quarterly")
		assert.Equal(t, subscription.IntervalQuarter, got)
	})

	t.Run("nothing matches defaults to month", func(t *testing.T) {
		t.Parallel()
		got := catalog.ResolveInterval("", "TradeLog Plus")
		assert.Equal(t, subscription.IntervalMonth, got)
	})
}

func TestInferInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want subscription.BillingInterval
	}{
		{"TradeLog Plus Monthly", subscription.IntervalMonth},
		{"TradeLog Plus Quarterly", subscription.IntervalQuarter},
		{"TradeLog Plus Yearly", subscription.IntervalYear},
		{"TradeLog Lifetime Access", subscription.IntervalLifetime},
		{"Something Else", subscription.IntervalMonth},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.InferInterval(tt.name))
		})
	}
}

func TestCatalogByProviderID(t *testing.T) {
	t.Parallel()

	catalog := subscription.DefaultCatalog()

	plan, ok := catalog.ByProviderID("plan_55MGVOxft6Ipz")
	require.True(t, ok)
	assert.Equal(t, "monthly", plan.LookupKey)
	assert.Equal(t, int64(2900), plan.Price.Amount)

	_, ok = catalog.ByProviderID("plan_missing")
	assert.False(t, ok)

	_, ok = catalog.ByProviderID("")
	assert.False(t, ok)
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	writePlans := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	t.Run("loads a valid catalog", func(t *testing.T) {
		t.Parallel()
		path := writePlans(t, `
monthly:
  provider_plan_id: plan_55MGVOxft6Ipz
  name: Monthly
  lookup_key: monthly
  price:
    amount: 2900
    currency: USD
  interval: month
yearly:
  provider_plan_id: plan_JWhvqxtgDDqFf
  name: Yearly
  price:
    amount: 25000
    currency: USD
  interval: year
  trial_days: 7
`)

		catalog, err := subscription.NewYAMLSource(path).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, catalog, 2)
		assert.Equal(t, subscription.IntervalYear, catalog["yearly"].Interval)
		assert.Equal(t, 7, catalog["yearly"].TrialDays)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.NewYAMLSource("/nonexistent/plans.yaml").Load(context.Background())
		assert.ErrorIs(t, err, subscription.ErrFailedToLoadPlans)
	})

	t.Run("lookup key mismatch", func(t *testing.T) {
		t.Parallel()
		path := writePlans(t, `
monthly:
  name: Monthly
  lookup_key: yearly
  interval: month
`)
		_, err := subscription.NewYAMLSource(path).Load(context.Background())
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("unknown interval", func(t *testing.T) {
		t.Parallel()
		path := writePlans(t, `
monthly:
  name: Monthly
  interval: weekly
`)
		_, err := subscription.NewYAMLSource(path).Load(context.Background())
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("empty catalog", func(t *testing.T) {
		t.Parallel()
		path := writePlans(t, "")
		_, err := subscription.NewYAMLSource(path).Load(context.Background())
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})
}

func TestSubscriptionEntitled(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		sub  subscription.Subscription
		want bool
	}{
		{"active within period", subscription.Subscription{Status: subscription.StatusActive, EndDate: &future}, true},
		{"active without end date", subscription.Subscription{Status: subscription.StatusActive}, true},
		{"active past end date", subscription.Subscription{Status: subscription.StatusActive, EndDate: &past}, false},
		{"lifetime ignores end date", subscription.Subscription{Status: subscription.StatusActive, Interval: subscription.IntervalLifetime, EndDate: &past}, true},
		{"trial within window", subscription.Subscription{Status: subscription.StatusTrial, TrialEndsAt: &future}, true},
		{"past due not entitled", subscription.Subscription{Status: subscription.StatusPastDue}, false},
		{"cancelled not entitled", subscription.Subscription{Status: subscription.StatusCancelled}, false},
		{"expired not entitled", subscription.Subscription{Status: subscription.StatusExpired}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sub.Entitled(now))
		})
	}
}

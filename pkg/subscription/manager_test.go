package subscription_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/billing/pkg/subscription"
	"github.com/tradelog/billing/pkg/whop"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FindMemberByEmail(ctx context.Context, email string) (*whop.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whop.Member), args.Error(1)
}

func (m *mockProvider) ListMemberships(ctx context.Context, userID string, statuses []string) ([]whop.Membership, error) {
	args := m.Called(ctx, userID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]whop.Membership), args.Error(1)
}

func (m *mockProvider) CreateCheckoutConfig(ctx context.Context, req whop.CheckoutConfigRequest) (*whop.CheckoutConfig, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whop.CheckoutConfig), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, notice subscription.PaymentFailedNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, store subscription.Store, opts ...subscription.ManagerOption) *subscription.Manager {
	t.Helper()
	base := []subscription.ManagerOption{
		subscription.WithClock(func() time.Time { return testNow }),
		subscription.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	mgr, err := subscription.NewManager(context.Background(),
		subscription.StaticSource(subscription.DefaultCatalog()),
		store,
		append(base, opts...)...,
	)
	require.NoError(t, err)
	return mgr
}

func TestManagerCreate(t *testing.T) {
	t.Parallel()

	t.Run("creates an active subscription", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)

		sub, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:           "user-1",
			Email:            "Alice@Example.com ",
			Plan:             "yearly",
			Interval:         subscription.IntervalYear,
			WhopMembershipID: "mem_123",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", sub.Email)
		assert.Equal(t, "YEARLY", sub.Plan)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, testNow, sub.CreatedAt)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("trial flag creates a trial subscription", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())

		sub, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
			Trial:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusTrial, sub.Status)
	})

	t.Run("missing email is rejected", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())

		_, err := mgr.Create(context.Background(), subscription.CreateParams{Plan: "monthly"})
		assert.ErrorIs(t, err, subscription.ErrMissingEmail)
	})

	t.Run("missing user id gets a synthetic one", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())

		sub, err := mgr.Create(context.Background(), subscription.CreateParams{
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, sub.UserID)
	})

	t.Run("repeat create converges to the same row", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)

		params := subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		}
		first, err := mgr.Create(context.Background(), params)
		require.NoError(t, err)
		second, err := mgr.Create(context.Background(), params)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
	})
}

func TestManagerUpdate(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T) (*subscription.Manager, *subscription.MemoryStore) {
		t.Helper()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)
		return mgr, store
	}

	t.Run("overwrites from provider snapshot", func(t *testing.T) {
		t.Parallel()
		mgr, _ := seed(t)

		end := testNow.Add(365 * 24 * time.Hour)
		sub, err := mgr.Update(context.Background(), subscription.UpdateParams{
			Email:          "alice@example.com",
			Plan:           "yearly",
			Interval:       subscription.IntervalYear,
			ProviderStatus: "active",
			EndDate:        &end,
		})
		require.NoError(t, err)
		assert.Equal(t, "YEARLY", sub.Plan)
		assert.Equal(t, subscription.IntervalYear, sub.Interval)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, &end, sub.EndDate)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())

		_, err := mgr.Update(context.Background(), subscription.UpdateParams{
			Email:          "nobody@example.com",
			ProviderStatus: "active",
		})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("unusual transition still applies", func(t *testing.T) {
		t.Parallel()
		mgr, store := seed(t)

		// ACTIVE back to TRIAL is outside the legal table but the snapshot
		// is authoritative.
		sub, err := mgr.Update(context.Background(), subscription.UpdateParams{
			Email:          "alice@example.com",
			Plan:           "monthly",
			Interval:       subscription.IntervalMonth,
			ProviderStatus: "trialing",
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusTrial, sub.Status)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusTrial, got.Status)
	})
}

func TestManagerCancel(t *testing.T) {
	t.Parallel()

	t.Run("marks cancelled with end date", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)

		sub, err := mgr.Cancel(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, sub.Status)
		require.NotNil(t, sub.EndDate)
		assert.Equal(t, testNow, *sub.EndDate)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())
		_, err := mgr.Cancel(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestManagerHandlePaymentSuccess(t *testing.T) {
	t.Parallel()

	t.Run("confirms active and rolls end date", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)

		// Knock the row into PAST_DUE first; a successful charge recovers it.
		require.NoError(t, mgr.HandlePaymentFailure(context.Background(), subscription.PaymentFailureParams{
			Email:         "alice@example.com",
			AttemptNumber: 1,
		}))

		renewal := testNow.Add(30 * 24 * time.Hour)
		err = mgr.HandlePaymentSuccess(context.Background(), subscription.PaymentSuccessParams{
			Email:       "alice@example.com",
			Amount:      2900,
			RenewalDate: &renewal,
		})
		require.NoError(t, err)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, got.Status)
		assert.Equal(t, &renewal, got.EndDate)
	})

	t.Run("missing row is upserted", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		mgr := newTestManager(t, store)

		err := mgr.HandlePaymentSuccess(context.Background(), subscription.PaymentSuccessParams{
			UserID:           "user-1",
			Email:            "alice@example.com",
			WhopMembershipID: "mem_123",
			Amount:           2900,
		})
		require.NoError(t, err)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, got.Status)
		assert.Equal(t, "mem_123", got.WhopMembershipID)
	})
}

func TestManagerHandlePaymentFailure(t *testing.T) {
	t.Parallel()

	t.Run("moves active to past due and notifies", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		notifier := &mockNotifier{}
		notifier.On("PaymentFailed", mock.Anything, subscription.PaymentFailedNotice{
			Email:         "alice@example.com",
			AttemptNumber: 2,
			ManageURL:     "https://whop.com/manage",
		}).Return(nil)

		mgr := newTestManager(t, store, subscription.WithNotifier(notifier))
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)

		err = mgr.HandlePaymentFailure(context.Background(), subscription.PaymentFailureParams{
			Email:         "alice@example.com",
			AttemptNumber: 2,
			ManageURL:     "https://whop.com/manage",
		})
		require.NoError(t, err)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, got.Status)
		notifier.AssertExpectations(t)
	})

	t.Run("notifier error is not fatal", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		notifier := &mockNotifier{}
		notifier.On("PaymentFailed", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		mgr := newTestManager(t, store, subscription.WithNotifier(notifier))
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)

		err = mgr.HandlePaymentFailure(context.Background(), subscription.PaymentFailureParams{
			Email:         "alice@example.com",
			AttemptNumber: 1,
		})
		assert.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore())
		err := mgr.HandlePaymentFailure(context.Background(), subscription.PaymentFailureParams{
			Email: "nobody@example.com",
		})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestManagerResolve(t *testing.T) {
	t.Parallel()

	t.Run("entitled local row short-circuits", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		provider := &mockProvider{}
		mgr := newTestManager(t, store, subscription.WithProvider(provider))
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)

		sub, err := mgr.Resolve(context.Background(), "user-1", "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		provider.AssertNotCalled(t, "FindMemberByEmail")
	})

	t.Run("provider hit is synced locally", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		provider := &mockProvider{}
		provider.On("FindMemberByEmail", mock.Anything, "alice@example.com").Return(&whop.Member{
			ID:   "member_1",
			User: &whop.User{ID: "whop_user_1", Email: "alice@example.com"},
		}, nil)
		provider.On("ListMemberships", mock.Anything, "whop_user_1", []string{"active", "trialing"}).Return([]whop.Membership{
			{
				ID:        "mem_old",
				Status:    "active",
				Product:   &whop.Product{Title: "TradeLog Plus Monthly"},
				Plan:      &whop.PlanRef{ID: "plan_55MGVOxft6Ipz"},
				CreatedAt: 1000,
			},
			{
				ID:               "mem_new",
				Status:           "active",
				Product:          &whop.Product{Title: "TradeLog Plus Yearly"},
				Plan:             &whop.PlanRef{ID: "plan_JWhvqxtgDDqFf"},
				CreatedAt:        2000,
				RenewalPeriodEnd: testNow.Add(300 * 24 * time.Hour).Unix(),
			},
		}, nil)

		mgr := newTestManager(t, store, subscription.WithProvider(provider))

		sub, err := mgr.Resolve(context.Background(), "user-1", "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "mem_new", sub.WhopMembershipID)
		assert.Equal(t, subscription.IntervalYear, sub.Interval)

		got, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "mem_new", got.WhopMembershipID)
	})

	t.Run("no provider membership returns local row", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		provider := &mockProvider{}
		provider.On("FindMemberByEmail", mock.Anything, "alice@example.com").
			Return(nil, whop.ErrMembershipNotFound)

		mgr := newTestManager(t, store, subscription.WithProvider(provider))
		_, err := mgr.Create(context.Background(), subscription.CreateParams{
			UserID:   "user-1",
			Email:    "alice@example.com",
			Plan:     "monthly",
			Interval: subscription.IntervalMonth,
		})
		require.NoError(t, err)
		_, err = mgr.Cancel(context.Background(), "alice@example.com")
		require.NoError(t, err)

		sub, err := mgr.Resolve(context.Background(), "user-1", "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, sub.Status)
	})

	t.Run("no row anywhere", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("FindMemberByEmail", mock.Anything, "nobody@example.com").
			Return(nil, whop.ErrMembershipNotFound)

		mgr := newTestManager(t, subscription.NewMemoryStore(), subscription.WithProvider(provider))
		_, err := mgr.Resolve(context.Background(), "", "nobody@example.com")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("FindMemberByEmail", mock.Anything, "alice@example.com").
			Return(nil, errors.New("gateway timeout"))

		mgr := newTestManager(t, subscription.NewMemoryStore(), subscription.WithProvider(provider))
		_, err := mgr.Resolve(context.Background(), "", "alice@example.com")
		assert.ErrorIs(t, err, subscription.ErrProviderError)
	})
}

func TestManagerCreateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("creates a checkout session", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("CreateCheckoutConfig", mock.Anything, mock.MatchedBy(func(req whop.CheckoutConfigRequest) bool {
			return req.PlanID == "plan_JWhvqxtgDDqFf" &&
				req.Metadata["user_id"] == "user-1" &&
				req.Metadata["plan"] == "yearly" &&
				req.Metadata["referral_code"] == "FRIEND20"
		})).Return(&whop.CheckoutConfig{ID: "cc_1", PurchaseURL: "https://whop.com/checkout/cc_1"}, nil)

		mgr := newTestManager(t, subscription.NewMemoryStore(), subscription.WithProvider(provider))

		url, err := mgr.CreateCheckout(context.Background(), subscription.CheckoutParams{
			PlanKey:      "yearly",
			UserID:       "user-1",
			Email:        "alice@example.com",
			ReferralCode: "FRIEND20",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://whop.com/checkout/cc_1", url)
		provider.AssertExpectations(t)
	})

	t.Run("unknown plan key", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, subscription.NewMemoryStore(), subscription.WithProvider(&mockProvider{}))
		_, err := mgr.CreateCheckout(context.Background(), subscription.CheckoutParams{PlanKey: "weekly"})
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)
	})

	t.Run("empty purchase url", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		provider.On("CreateCheckoutConfig", mock.Anything, mock.Anything).
			Return(&whop.CheckoutConfig{ID: "cc_1"}, nil)

		mgr := newTestManager(t, subscription.NewMemoryStore(), subscription.WithProvider(provider))
		_, err := mgr.CreateCheckout(context.Background(), subscription.CheckoutParams{PlanKey: "monthly"})
		assert.ErrorIs(t, err, subscription.ErrNoCheckoutURL)
	})
}

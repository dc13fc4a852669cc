package whop_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/billing/pkg/whop"
)

func testConfig(baseURL string) whop.Config {
	return whop.Config{
		APIKey:        "test-key",
		WebhookSecret: "whsec",
		CompanyID:     "biz_123",
		BaseURL:       baseURL,
		HTTPTimeout:   5 * time.Second,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()

		_, err := whop.New(whop.Config{CompanyID: "biz_123"})
		assert.ErrorIs(t, err, whop.ErrMissingAPIKey)
	})

	t.Run("missing company id", func(t *testing.T) {
		t.Parallel()

		_, err := whop.New(whop.Config{APIKey: "key"})
		assert.ErrorIs(t, err, whop.ErrMissingCompanyID)
	})
}

func TestGetMembership(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memberships/mem_1", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":     "mem_1",
			"status": "active",
			"user":   map[string]any{"id": "user_1", "email": "a@b.com"},
			"product": map[string]any{
				"id":    "prod_1",
				"title": "TradeLog Plus Yearly",
			},
			"plan":               map[string]any{"id": "plan_JWhvqxtgDDqFf"},
			"metadata":           map[string]any{"user_id": "u-42", "plan": "yearly"},
			"renewal_period_end": 1767225600,
		})
	}))
	defer srv.Close()

	client, err := whop.New(testConfig(srv.URL))
	require.NoError(t, err)

	membership, err := client.GetMembership(context.Background(), "mem_1")
	require.NoError(t, err)

	assert.Equal(t, "mem_1", membership.ID)
	assert.Equal(t, "active", membership.Status)
	assert.Equal(t, "a@b.com", membership.UserEmail())
	assert.Equal(t, "TradeLog Plus Yearly", membership.ProductTitle())
	assert.Equal(t, "plan_JWhvqxtgDDqFf", membership.PlanID())
	assert.Equal(t, "u-42", membership.MetadataString("user_id"))
	assert.EqualValues(t, 1767225600, membership.RenewalPeriodEnd)
}

func TestGetMembershipNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := whop.New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.GetMembership(context.Background(), "mem_missing")
	assert.ErrorIs(t, err, whop.ErrMembershipNotFound)
}

func TestGetMembershipUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := whop.New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.GetMembership(context.Background(), "mem_1")
	assert.ErrorIs(t, err, whop.ErrUnauthorized)
}

func TestListMemberships(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "biz_123", q.Get("company_id"))
		assert.Equal(t, "user_1", q.Get("user_ids[]"))
		assert.ElementsMatch(t, []string{"active", "trialing"}, q["statuses[]"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "mem_1", "status": "active"},
				{"id": "mem_2", "status": "trialing"},
			},
		})
	}))
	defer srv.Close()

	client, err := whop.New(testConfig(srv.URL))
	require.NoError(t, err)

	memberships, err := client.ListMemberships(context.Background(), "user_1", []string{"active", "trialing"})
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, "mem_1", memberships[0].ID)
}

func TestFindMemberByEmail(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "a@b.com", r.URL.Query().Get("query"))
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "member_1", "user": map[string]any{"id": "user_1", "email": "a@b.com"}},
				},
			})
		}))
		defer srv.Close()

		client, err := whop.New(testConfig(srv.URL))
		require.NoError(t, err)

		member, err := client.FindMemberByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "user_1", member.User.ID)
	})

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer srv.Close()

		client, err := whop.New(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = client.FindMemberByEmail(context.Background(), "nobody@b.com")
		assert.ErrorIs(t, err, whop.ErrMembershipNotFound)
	})
}

func TestCreateCheckoutConfig(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout_configurations", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// Company id defaults from client config when the request omits it.
		assert.Equal(t, "biz_123", req["company_id"])
		assert.Equal(t, "plan_55MGVOxft6Ipz", req["plan_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"id":           "cfg_1",
			"purchase_url": "https://whop.com/checkout/cfg_1",
		})
	}))
	defer srv.Close()

	client, err := whop.New(testConfig(srv.URL))
	require.NoError(t, err)

	cfg, err := client.CreateCheckoutConfig(context.Background(), whop.CheckoutConfigRequest{
		PlanID: "plan_55MGVOxft6Ipz",
		Metadata: map[string]any{
			"user_id": "u-42",
			"plan":    "monthly",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://whop.com/checkout/cfg_1", cfg.PurchaseURL)
}

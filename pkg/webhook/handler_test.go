package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/billing/pkg/subscription"
	"github.com/tradelog/billing/pkg/webhook"
)

func newTestServer(t *testing.T, p *pipeline) (*httptest.Server, *webhook.Verifier) {
	t.Helper()

	verifier, err := webhook.NewVerifier("whsec_test")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/webhooks/whop", webhook.Handler(verifier, p.processor, nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, verifier
}

func deliver(t *testing.T, srv *httptest.Server, body []byte, signature string) (*http.Response, map[string]string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/whop", bytes.NewReader(body))
	require.NoError(t, err)
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandlerAcceptsSignedEvent(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	srv, verifier := newTestServer(t, p)

	body := []byte(`{
		"id": "evt_1",
		"action": "membership.activated",
		"data": {
			"id": "mem_1",
			"status": "active",
			"user": {"email": "a@b.com"},
			"product": {"title": "TradeLog Plus Yearly"},
			"metadata": {"plan": "yearly", "user_id": "internal-1"}
		}
	}`)

	resp, decoded := deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Received", decoded["message"])

	sub, err := p.subStore.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, subscription.IntervalYear, sub.Interval)

	// Redelivery acknowledges without side effects.
	resp, decoded = deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Received", decoded["message"])
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	srv, _ := newTestServer(t, p)

	body := []byte(`{"id": "evt_1", "action": "membership.activated", "data": {}}`)

	resp, decoded := deliver(t, srv, body, "deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid signature", decoded["error"])

	resp, _ = deliver(t, srv, body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	srv, verifier := newTestServer(t, p)

	body := []byte(`{"action": "membership.activated", "data": {}}`)
	resp, decoded := deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid payload", decoded["error"])
}

func TestHandlerReturns500OnHandlerFailure(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	p.fetcher.setErr(errors.New("provider timeout"))
	srv, verifier := newTestServer(t, p)

	body := []byte(`{
		"id": "evt_pay",
		"action": "payment.succeeded",
		"data": {"id": "pay_1", "membership_id": "mem_1", "final_amount": 2900}
	}`)

	resp, decoded := deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decoded["error"], "read-through")

	// The provider retries after the fault clears and the event lands.
	p.fetcher.setErr(nil)
	resp, _ = deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerAcknowledgesUnknownType(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	srv, verifier := newTestServer(t, p)

	body := []byte(`{"id": "evt_x", "action": "dispute.created", "data": {"id": "disp_1"}}`)
	resp, decoded := deliver(t, srv, body, verifier.Sign(body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Received", decoded["message"])
}

package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is a thin JSON client for the Whop API. It covers the handful of
// endpoints the billing service needs: membership retrieval (webhook payloads
// do not carry full membership context), member lookup by email, and hosted
// checkout creation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	companyID  string
}

// New creates a Whop API client.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.CompanyID == "" {
		return nil, ErrMissingCompanyID
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		companyID:  cfg.CompanyID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// GetMembership retrieves full membership details by id. Used as the
// read-through when a payment webhook only carries a membership reference.
func (c *Client) GetMembership(ctx context.Context, id string) (*Membership, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty membership id", ErrRequestFailed)
	}

	var membership Membership
	if err := c.do(ctx, http.MethodGet, "/memberships/"+url.PathEscape(id), nil, &membership); err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListMemberships lists a user's memberships filtered by status.
func (c *Client) ListMemberships(ctx context.Context, userID string, statuses []string) ([]Membership, error) {
	q := url.Values{}
	q.Set("company_id", c.companyID)
	q.Set("user_ids[]", userID)
	for _, s := range statuses {
		q.Add("statuses[]", s)
	}

	var resp listResponse[Membership]
	if err := c.do(ctx, http.MethodGet, "/memberships?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FindMemberByEmail looks up a company member by email. Returns
// ErrMembershipNotFound when the email matches nobody.
func (c *Client) FindMemberByEmail(ctx context.Context, email string) (*Member, error) {
	q := url.Values{}
	q.Set("company_id", c.companyID)
	q.Set("query", email)

	var resp listResponse[Member]
	if err := c.do(ctx, http.MethodGet, "/members?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrMembershipNotFound
	}
	return &resp.Data[0], nil
}

// CreateCheckoutConfig creates a hosted checkout session.
func (c *Client) CreateCheckoutConfig(ctx context.Context, req CheckoutConfigRequest) (*CheckoutConfig, error) {
	if req.CompanyID == "" {
		req.CompanyID = c.companyID
	}

	var cfg CheckoutConfig
	if err := c.do(ctx, http.MethodPost, "/checkout_configurations", req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Join(ErrRequestFailed, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrMembershipNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// The body is read for the error message but capped to keep log
		// records bounded.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatusCode, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	return nil
}

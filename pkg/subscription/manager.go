package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradelog/billing/pkg/whop"
)

// Manager owns every mutation of Subscription rows. UI code reads rows but
// never writes them; writes come only from webhook handlers and from the
// authoritative read-through in Resolve.
type Manager struct {
	store    Store
	catalog  Catalog
	provider ProviderClient
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewManager creates a Manager. Panics when store or src is nil to fail
// fast during initialization. Provider and notifier are optional: without a
// provider the read-through and checkout paths return ErrProviderError,
// without a notifier dunning emails are skipped.
func NewManager(ctx context.Context, src PlanSource, store Store, opts ...ManagerOption) (*Manager, error) {
	if src == nil {
		panic("subscription: PlanSource is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}

	catalog, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:    store,
		catalog:  catalog,
		notifier: NoopNotifier{},
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Catalog exposes the loaded plan catalog for interval resolution and
// checkout validation.
func (m *Manager) Catalog() Catalog {
	return m.catalog
}

// CreateParams describes a subscription row to create or overwrite.
type CreateParams struct {
	UserID           string
	Email            string
	Plan             string
	Interval         BillingInterval
	WhopMembershipID string
	Trial            bool
	EndDate          *time.Time
	TrialEndsAt      *time.Time
}

// Create upserts a subscription for a customer identity. Applying the same
// params twice converges to the same row, which is what makes duplicate
// membership.activated deliveries safe.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*Subscription, error) {
	if params.Email == "" {
		return nil, ErrMissingEmail
	}

	userID := params.UserID
	if userID == "" {
		// Provider metadata sometimes omits our user id; a synthetic one
		// keeps the unique constraint satisfied until account linking
		// reconciles it.
		userID = uuid.NewString()
	}

	status := StatusActive
	if params.Trial {
		status = StatusTrial
	}

	now := m.now()
	sub := &Subscription{
		ID:               uuid.New(),
		UserID:           userID,
		Email:            NormalizeEmail(params.Email),
		Plan:             strings.ToUpper(params.Plan),
		Interval:         params.Interval,
		Status:           status,
		WhopMembershipID: params.WhopMembershipID,
		EndDate:          params.EndDate,
		TrialEndsAt:      params.TrialEndsAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.store.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	m.log.InfoContext(ctx, "subscription created",
		slog.String("email", sub.Email),
		slog.String("plan", sub.Plan),
		slog.String("interval", string(sub.Interval)),
		slog.Bool("trial", params.Trial),
	)
	return sub, nil
}

// UpdateParams is an authoritative membership snapshot from the provider.
type UpdateParams struct {
	Email          string
	Plan           string
	Interval       BillingInterval
	ProviderStatus string
	EndDate        *time.Time
}

// Update overwrites an existing subscription from a provider snapshot. This
// is overwrite, not merge: the provider's view wins. Returns
// ErrSubscriptionNotFound when no row exists for the email; out-of-order
// delivery makes that case benign for callers.
func (m *Manager) Update(ctx context.Context, params UpdateParams) (*Subscription, error) {
	if params.Email == "" {
		return nil, ErrMissingEmail
	}

	email := NormalizeEmail(params.Email)
	sub, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	next := statusFromProvider(params.ProviderStatus)
	if !CanTransition(sub.Status, next) {
		// The snapshot is authoritative, so the overwrite still happens;
		// the log line surfaces suspect orderings for reconciliation.
		m.log.WarnContext(ctx, "membership snapshot implies unusual status transition",
			slog.String("email", email),
			slog.String("from", string(sub.Status)),
			slog.String("to", string(next)),
		)
	}

	sub.Plan = strings.ToUpper(params.Plan)
	sub.Interval = params.Interval
	sub.Status = next
	if params.EndDate != nil {
		sub.EndDate = params.EndDate
	}
	sub.UpdatedAt = m.now()

	if err := m.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	m.log.InfoContext(ctx, "subscription updated",
		slog.String("email", email),
		slog.String("plan", sub.Plan),
		slog.String("status", string(sub.Status)),
	)
	return sub, nil
}

// Cancel marks the subscription cancelled with the end date set to now.
// The row is kept for audit. Returns ErrSubscriptionNotFound when no row
// exists.
func (m *Manager) Cancel(ctx context.Context, email string) (*Subscription, error) {
	if email == "" {
		return nil, ErrMissingEmail
	}

	email = NormalizeEmail(email)
	sub, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sub.Status = StatusCancelled
	sub.EndDate = &now
	sub.UpdatedAt = now

	if err := m.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	m.log.InfoContext(ctx, "subscription cancelled", slog.String("email", email))
	return sub, nil
}

// PaymentSuccessParams describes a successful renewal charge.
type PaymentSuccessParams struct {
	UserID           string
	Email            string
	WhopMembershipID string
	Amount           int64
	RenewalDate      *time.Time
}

// HandlePaymentSuccess confirms ACTIVE status and rolls the period end
// forward to the new renewal boundary. A missing row is upserted from the
// read-through membership details: the charge proves the customer exists
// even if the activation event never arrived.
func (m *Manager) HandlePaymentSuccess(ctx context.Context, params PaymentSuccessParams) error {
	if params.Email == "" {
		return ErrMissingEmail
	}

	email := NormalizeEmail(params.Email)
	sub, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrSubscriptionNotFound) {
			return err
		}
		_, err = m.Create(ctx, CreateParams{
			UserID:           params.UserID,
			Email:            email,
			Plan:             "PLUS",
			Interval:         IntervalMonth,
			WhopMembershipID: params.WhopMembershipID,
			EndDate:          params.RenewalDate,
		})
		return err
	}

	sub.Status = StatusActive
	if params.RenewalDate != nil {
		sub.EndDate = params.RenewalDate
	}
	if params.WhopMembershipID != "" {
		sub.WhopMembershipID = params.WhopMembershipID
	}
	sub.UpdatedAt = m.now()

	if err := m.store.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to confirm subscription renewal: %w", err)
	}

	m.log.InfoContext(ctx, "subscription renewal confirmed",
		slog.String("email", email),
		slog.Int64("amount", params.Amount),
	)
	return nil
}

// PaymentFailureParams describes a failed renewal charge.
type PaymentFailureParams struct {
	UserID           string
	Email            string
	WhopMembershipID string
	AttemptNumber    int
	ManageURL        string
}

// HandlePaymentFailure moves an entitled subscription to PAST_DUE and sends
// the dunning notification. Returns ErrSubscriptionNotFound when no row
// exists for the email.
func (m *Manager) HandlePaymentFailure(ctx context.Context, params PaymentFailureParams) error {
	if params.Email == "" {
		return ErrMissingEmail
	}

	email := NormalizeEmail(params.Email)
	sub, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if sub.Status == StatusActive || sub.Status == StatusTrial {
		sub.Status = StatusPastDue
		sub.UpdatedAt = m.now()
		if err := m.store.Update(ctx, sub); err != nil {
			return fmt.Errorf("failed to mark subscription past due: %w", err)
		}
	}

	if err := m.notifier.PaymentFailed(ctx, PaymentFailedNotice{
		Email:         email,
		AttemptNumber: params.AttemptNumber,
		ManageURL:     params.ManageURL,
	}); err != nil {
		// Notification failures must not fail the webhook pipeline.
		m.log.ErrorContext(ctx, "failed to send dunning notification",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	m.log.InfoContext(ctx, "payment failure handled",
		slog.String("email", email),
		slog.Int("attempt_number", params.AttemptNumber),
	)
	return nil
}

// Resolve returns the customer's subscription, trusting the local store
// when it already shows an entitled status and falling back to an
// authoritative provider lookup otherwise. A provider hit is synced into
// the local store so the next read is local.
func (m *Manager) Resolve(ctx context.Context, userID, email string) (*Subscription, error) {
	if email == "" {
		return nil, ErrMissingEmail
	}
	email = NormalizeEmail(email)

	local, err := m.store.GetByEmail(ctx, email)
	if err == nil && (local.Status == StatusActive || local.Status == StatusTrial) {
		return local, nil
	}
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	if m.provider == nil {
		if local != nil {
			return local, nil
		}
		return nil, ErrSubscriptionNotFound
	}

	member, err := m.provider.FindMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, whop.ErrMembershipNotFound) {
			if local != nil {
				return local, nil
			}
			return nil, ErrSubscriptionNotFound
		}
		return nil, errors.Join(ErrProviderError, err)
	}
	if member.User == nil {
		return nil, ErrSubscriptionNotFound
	}

	memberships, err := m.provider.ListMemberships(ctx, member.User.ID, []string{"active", "trialing"})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	if len(memberships) == 0 {
		if local != nil {
			return local, nil
		}
		return nil, ErrSubscriptionNotFound
	}

	// Most recently created membership wins when the provider reports
	// several.
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].CreatedAt > memberships[j].CreatedAt
	})
	membership := memberships[0]

	var endDate *time.Time
	if membership.RenewalPeriodEnd > 0 {
		t := time.Unix(membership.RenewalPeriodEnd, 0).UTC()
		endDate = &t
	}

	if userID == "" {
		userID = membership.MetadataString("user_id")
	}

	return m.Create(ctx, CreateParams{
		UserID:           userID,
		Email:            email,
		Plan:             membership.ProductTitle(),
		Interval:         m.catalog.ResolveInterval(membership.PlanID(), membership.ProductTitle()),
		WhopMembershipID: membership.ID,
		Trial:            membership.Status == "trialing",
		EndDate:          endDate,
	})
}

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	PlanKey      string
	UserID       string
	Email        string
	Metadata     map[string]any
	ReferralCode string
	RedirectURL  string
}

// CreateCheckout builds checkout metadata and delegates session creation to
// the provider. The metadata round-trips through the membership webhook so
// handlers can link the membership back to our user.
func (m *Manager) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	plan, ok := m.catalog[params.PlanKey]
	if !ok {
		return "", ErrPlanNotFound
	}
	if m.provider == nil {
		return "", ErrProviderError
	}

	metadata := map[string]any{
		"user_id": params.UserID,
		"email":   params.Email,
		"plan":    params.PlanKey,
	}
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	if params.ReferralCode != "" {
		metadata["referral_code"] = params.ReferralCode
	}

	cfg, err := m.provider.CreateCheckoutConfig(ctx, whop.CheckoutConfigRequest{
		PlanID:      plan.ProviderPlanID,
		Metadata:    metadata,
		RedirectURL: params.RedirectURL,
	})
	if err != nil {
		return "", errors.Join(ErrProviderError, err)
	}
	if cfg.PurchaseURL == "" {
		return "", ErrNoCheckoutURL
	}

	m.log.InfoContext(ctx, "checkout session created",
		slog.String("user_id", params.UserID),
		slog.String("email", params.Email),
		slog.String("plan", params.PlanKey),
	)
	return cfg.PurchaseURL, nil
}

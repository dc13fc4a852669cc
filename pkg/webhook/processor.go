package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tradelog/billing/pkg/payment"
	"github.com/tradelog/billing/pkg/subscription"
	"github.com/tradelog/billing/pkg/whop"
)

// SubscriptionManager is the slice of the subscription package the
// handlers drive.
type SubscriptionManager interface {
	Catalog() subscription.Catalog
	Create(ctx context.Context, params subscription.CreateParams) (*subscription.Subscription, error)
	Update(ctx context.Context, params subscription.UpdateParams) (*subscription.Subscription, error)
	Cancel(ctx context.Context, email string) (*subscription.Subscription, error)
	HandlePaymentSuccess(ctx context.Context, params subscription.PaymentSuccessParams) error
	HandlePaymentFailure(ctx context.Context, params subscription.PaymentFailureParams) error
}

// PaymentRecorder is the slice of the payment package the handlers drive.
type PaymentRecorder interface {
	RecordTransaction(ctx context.Context, params payment.TransactionParams) (*payment.Transaction, error)
	RecordInvoice(ctx context.Context, params payment.InvoiceParams) (*payment.Invoice, error)
	MarkInvoicePaid(ctx context.Context, providerInvoiceID string) error
	MarkInvoicePaymentFailed(ctx context.Context, providerInvoiceID string) error
	ProcessRefund(ctx context.Context, params payment.RefundParams) (*payment.Refund, error)
}

// MembershipFetcher does the read-through membership lookup for payment
// events, whose payloads do not carry full membership context.
type MembershipFetcher interface {
	GetMembership(ctx context.Context, membershipID string) (*whop.Membership, error)
}

// Result is the per-event outcome returned to the transport layer.
//
// Success=false means the provider should redeliver: the ledger slot has
// been released and the next attempt will claim it again. AlreadyProcessed
// and Skipped are both acknowledged as success so the provider stops
// retrying events that cannot or need not run again.
type Result struct {
	Success          bool
	Processed        bool
	AlreadyProcessed bool
	Skipped          bool
	SkipReason       string
	Err              error
}

type outcome struct {
	processed  bool
	skipReason string
	meta       map[string]any
}

func skipped(reason string) outcome {
	return outcome{skipReason: reason}
}

type handlerFunc func(ctx context.Context, evt *Event) (outcome, error)

// Processor runs the claim/process/finalize protocol around the per-type
// event handlers.
type Processor struct {
	ledger   LedgerStore
	subs     SubscriptionManager
	payments PaymentRecorder
	fetcher  MembershipFetcher
	attempts AttemptTracker
	log      *slog.Logger
	now      func() time.Time

	resetAttemptsOnSuccess bool
	staleClaimAge          time.Duration
	sweepInterval          time.Duration

	router map[EventType]handlerFunc
}

// NewProcessor creates a Processor. Panics when ledger, subs, or payments
// is nil; the fetcher and attempt tracker are optional and degrade the
// corresponding handlers when absent.
func NewProcessor(ledger LedgerStore, subs SubscriptionManager, payments PaymentRecorder, opts ...ProcessorOption) *Processor {
	if ledger == nil {
		panic("webhook: ledger is required")
	}
	if subs == nil {
		panic("webhook: subscription manager is required")
	}
	if payments == nil {
		panic("webhook: payment recorder is required")
	}

	p := &Processor{
		ledger:        ledger,
		subs:          subs,
		payments:      payments,
		attempts:      NewMemoryAttempts(),
		log:           slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
		staleClaimAge: 15 * time.Minute,
		sweepInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.router = map[EventType]handlerFunc{
		EventMembershipActivated:      p.handleMembershipActivated,
		EventMembershipTrialing:       p.handleMembershipActivated,
		EventMembershipUpdated:        p.handleMembershipUpdated,
		EventMembershipDeactivated:    p.handleMembershipDeactivated,
		EventPaymentSucceeded:         p.handlePaymentSucceeded,
		EventPaymentFailed:            p.handlePaymentFailed,
		EventPaymentRefunded:          p.handlePaymentRefunded,
		EventPaymentPartiallyRefunded: p.handlePaymentRefunded,
		EventInvoiceCreated:           p.handleInvoiceCreated,
		EventInvoicePaid:              p.handleInvoicePaid,
		EventInvoicePaymentFailed:     p.handleInvoicePaymentFailed,
	}
	return p
}

// Process applies one event exactly once logically.
//
// The claim insert is the concurrency control: of N concurrent deliveries
// of the same (id, type), exactly one wins the claim and runs the handler;
// the rest acknowledge as already processed. Handler failure releases the
// claim so the provider's redelivery can try again; handler success is
// finalized permanently.
func (p *Processor) Process(ctx context.Context, evt *Event) Result {
	log := p.log.With(
		slog.String("event_id", evt.ID),
		slog.String("event_type", string(evt.Type)),
	)

	if err := p.ledger.Claim(ctx, evt.ID, string(evt.Type), p.now()); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			log.InfoContext(ctx, "event already claimed, acknowledging without processing")
			return Result{Success: true, AlreadyProcessed: true}
		}
		log.ErrorContext(ctx, "failed to claim event", slog.Any("error", err))
		return Result{Err: fmt.Errorf("failed to claim event: %w", err)}
	}

	handler, known := p.router[evt.Type]
	if !known {
		// Providers add event types over time; rejecting them would make
		// the provider retry forever for events nobody consumes.
		log.InfoContext(ctx, "unknown event type, acknowledging without processing")
		if err := p.ledger.Finalize(ctx, evt.ID, string(evt.Type), map[string]any{"unknown_type": true}); err != nil {
			log.ErrorContext(ctx, "failed to finalize unknown event", slog.Any("error", err))
		}
		return Result{Success: true}
	}

	out, err := p.runHandler(ctx, handler, evt)
	if err != nil {
		log.ErrorContext(ctx, "handler failed, releasing claim for retry", slog.Any("error", err))
		if relErr := p.ledger.Release(ctx, evt.ID, string(evt.Type)); relErr != nil {
			log.ErrorContext(ctx, "failed to release claim", slog.Any("error", relErr))
		}
		return Result{Err: err}
	}

	meta := out.meta
	if meta == nil {
		meta = map[string]any{}
	}
	meta["processed"] = out.processed
	if out.skipReason != "" {
		meta["skip_reason"] = out.skipReason
	}
	if err := p.ledger.Finalize(ctx, evt.ID, string(evt.Type), meta); err != nil {
		// Side effects are applied but the slot is still processing; a
		// release lets the redelivery converge through the handlers'
		// natural idempotency rather than leaving the slot stuck.
		log.ErrorContext(ctx, "failed to finalize event", slog.Any("error", err))
		if relErr := p.ledger.Release(ctx, evt.ID, string(evt.Type)); relErr != nil {
			log.ErrorContext(ctx, "failed to release claim", slog.Any("error", relErr))
		}
		return Result{Err: fmt.Errorf("failed to finalize event: %w", err)}
	}

	if out.skipReason != "" {
		log.WarnContext(ctx, "event acknowledged without effect", slog.String("reason", out.skipReason))
		return Result{Success: true, Skipped: true, SkipReason: out.skipReason}
	}
	log.InfoContext(ctx, "event processed")
	return Result{Success: true, Processed: true}
}

func (p *Processor) runHandler(ctx context.Context, handler handlerFunc, evt *Event) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, evt)
}

// StartSweeper reclaims stuck processing slots in the background until ctx
// is cancelled. A crash between claim and finalize otherwise blocks that
// event's redeliveries forever.
func (p *Processor) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := p.now().Add(-p.staleClaimAge)
				reclaimed, err := p.ledger.ReleaseStale(ctx, cutoff)
				if err != nil {
					p.log.ErrorContext(ctx, "failed to sweep stale claims", slog.Any("error", err))
					continue
				}
				if reclaimed > 0 {
					p.log.WarnContext(ctx, "reclaimed stale processing claims",
						slog.Int64("count", reclaimed))
				}
			}
		}
	}()
}

func (p *Processor) handleMembershipActivated(ctx context.Context, evt *Event) (outcome, error) {
	m := evt.Membership
	email := m.UserEmail()
	if email == "" {
		return skipped("membership payload has no customer email"), nil
	}

	trial := evt.Type == EventMembershipTrialing || m.Status == "trialing"

	planKey := m.MetadataString("plan")
	planName := planKey
	if planName == "" {
		planName = m.ProductTitle()
	}

	interval := p.subs.Catalog().ResolveInterval(m.PlanID(), m.ProductTitle())
	if plan, ok := p.subs.Catalog()[strings.ToLower(planKey)]; ok {
		// Checkout metadata names the plan the customer actually chose;
		// trust it over product-title inference.
		interval = plan.Interval
	}

	endDate := unixTime(m.RenewalPeriodEnd)
	var trialEndsAt *time.Time
	if trial {
		trialEndsAt = endDate
	}

	sub, err := p.subs.Create(ctx, subscription.CreateParams{
		UserID:           m.MetadataString("user_id"),
		Email:            email,
		Plan:             planName,
		Interval:         interval,
		WhopMembershipID: m.ID,
		Trial:            trial,
		EndDate:          endDate,
		TrialEndsAt:      trialEndsAt,
	})
	if err != nil {
		return outcome{}, err
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"email":         sub.Email,
			"plan":          sub.Plan,
			"interval":      string(sub.Interval),
			"membership_id": m.ID,
			"trial":         trial,
		},
	}, nil
}

func (p *Processor) handleMembershipUpdated(ctx context.Context, evt *Event) (outcome, error) {
	m := evt.Membership
	email := m.UserEmail()
	if email == "" {
		return skipped("membership payload has no customer email"), nil
	}

	planName := m.MetadataString("plan")
	if planName == "" {
		planName = m.ProductTitle()
	}

	sub, err := p.subs.Update(ctx, subscription.UpdateParams{
		Email:          email,
		Plan:           planName,
		Interval:       p.subs.Catalog().ResolveInterval(m.PlanID(), m.ProductTitle()),
		ProviderStatus: m.Status,
		EndDate:        unixTime(m.RenewalPeriodEnd),
	})
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			// Out-of-order delivery: the activation event has not landed
			// yet. Acknowledge so the provider stops retrying; the
			// activation will carry the same snapshot.
			return skipped("no subscription row for email"), nil
		}
		return outcome{}, err
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"email":  sub.Email,
			"status": string(sub.Status),
		},
	}, nil
}

func (p *Processor) handleMembershipDeactivated(ctx context.Context, evt *Event) (outcome, error) {
	email := evt.Membership.UserEmail()
	if email == "" {
		return skipped("membership payload has no customer email"), nil
	}

	sub, err := p.subs.Cancel(ctx, email)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return skipped("no subscription row for email"), nil
		}
		return outcome{}, err
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"email":  sub.Email,
			"status": string(sub.Status),
		},
	}, nil
}

func (p *Processor) handlePaymentSucceeded(ctx context.Context, evt *Event) (outcome, error) {
	pay := evt.Payment
	email := pay.UserEmail()
	userID := metadataString(pay.Metadata, "user_id")
	var renewal *time.Time

	membership, err := p.fetchMembership(ctx, pay.MembershipID)
	if err != nil {
		return outcome{}, err
	}
	if membership != nil {
		if email == "" {
			email = membership.UserEmail()
		}
		if userID == "" {
			userID = membership.MetadataString("user_id")
		}
		renewal = unixTime(membership.RenewalPeriodEnd)
	}

	if email == "" {
		return skipped("payment payload has no resolvable customer email"), nil
	}

	if _, err := p.payments.RecordTransaction(ctx, payment.TransactionParams{
		ProviderPaymentID: pay.ID,
		MembershipID:      pay.MembershipID,
		Email:             email,
		Amount:            pay.FinalAmount,
		Currency:          pay.Currency,
		Status:            payment.TransactionCompleted,
	}); err != nil {
		return outcome{}, err
	}

	if err := p.subs.HandlePaymentSuccess(ctx, subscription.PaymentSuccessParams{
		UserID:           userID,
		Email:            email,
		WhopMembershipID: pay.MembershipID,
		Amount:           pay.FinalAmount,
		RenewalDate:      renewal,
	}); err != nil {
		return outcome{}, err
	}

	if p.resetAttemptsOnSuccess && pay.MembershipID != "" {
		if err := p.attempts.Reset(ctx, pay.MembershipID); err != nil {
			p.log.ErrorContext(ctx, "failed to reset payment failure count",
				slog.String("membership_id", pay.MembershipID),
				slog.Any("error", err),
			)
		}
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"email":         email,
			"payment_id":    pay.ID,
			"membership_id": pay.MembershipID,
			"amount":        pay.FinalAmount,
		},
	}, nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, evt *Event) (outcome, error) {
	pay := evt.Payment

	// The counter keys on membership id, not email, so it ticks even when
	// the customer cannot be resolved yet.
	attemptNumber := 0
	if pay.MembershipID != "" {
		n, err := p.attempts.Incr(ctx, pay.MembershipID)
		if err != nil {
			p.log.ErrorContext(ctx, "failed to count payment failure",
				slog.String("membership_id", pay.MembershipID),
				slog.Any("error", err),
			)
		} else {
			attemptNumber = n
		}
	}

	email := pay.UserEmail()
	manageURL := ""

	membership, err := p.fetchMembership(ctx, pay.MembershipID)
	if err != nil {
		return outcome{}, err
	}
	if membership != nil {
		if email == "" {
			email = membership.UserEmail()
		}
		manageURL = membership.ManageURL
	}

	if email == "" {
		return skipped("payment payload has no resolvable customer email"), nil
	}

	if pay.ID != "" {
		if _, err := p.payments.RecordTransaction(ctx, payment.TransactionParams{
			ProviderPaymentID: pay.ID,
			MembershipID:      pay.MembershipID,
			Email:             email,
			Amount:            pay.FinalAmount,
			Currency:          pay.Currency,
			Status:            payment.TransactionFailed,
		}); err != nil {
			return outcome{}, err
		}
	}

	if err := p.subs.HandlePaymentFailure(ctx, subscription.PaymentFailureParams{
		Email:            email,
		WhopMembershipID: pay.MembershipID,
		AttemptNumber:    attemptNumber,
		ManageURL:        manageURL,
	}); err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return skipped("no subscription row for email"), nil
		}
		return outcome{}, err
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"email":          email,
			"membership_id":  pay.MembershipID,
			"attempt_number": attemptNumber,
		},
	}, nil
}

func (p *Processor) handlePaymentRefunded(ctx context.Context, evt *Event) (outcome, error) {
	pay := evt.Payment
	if pay.ID == "" {
		return skipped("refund payload has no payment ID"), nil
	}

	amount := pay.RefundedAmount
	if amount == 0 {
		amount = pay.FinalAmount
	}
	refundID := pay.RefundID
	if refundID == "" {
		refundID = evt.ID
	}

	refund, err := p.payments.ProcessRefund(ctx, payment.RefundParams{
		ProviderRefundID:  refundID,
		ProviderPaymentID: pay.ID,
		Amount:            amount,
		Currency:          pay.Currency,
		Partial:           evt.Type == EventPaymentPartiallyRefunded,
		Reason:            pay.RefundReason,
	})
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			// The original charge was never recorded here; nothing to
			// correlate the refund against.
			return skipped("no recorded transaction for payment ID"), nil
		}
		return outcome{}, err
	}

	return outcome{
		processed: true,
		meta: map[string]any{
			"payment_id": pay.ID,
			"amount":     refund.Amount,
			"partial":    refund.Partial,
		},
	}, nil
}

func (p *Processor) handleInvoiceCreated(ctx context.Context, evt *Event) (outcome, error) {
	inv := evt.Invoice
	if inv.ID == "" {
		return skipped("invoice payload has no invoice ID"), nil
	}

	if _, err := p.payments.RecordInvoice(ctx, payment.InvoiceParams{
		ProviderInvoiceID: inv.ID,
		MembershipID:      inv.MembershipID,
		Email:             inv.UserEmail(),
		Amount:            inv.Amount,
		Currency:          inv.Currency,
	}); err != nil {
		return outcome{}, err
	}

	return outcome{processed: true, meta: map[string]any{"invoice_id": inv.ID}}, nil
}

func (p *Processor) handleInvoicePaid(ctx context.Context, evt *Event) (outcome, error) {
	return p.setInvoiceStatus(ctx, evt, p.payments.MarkInvoicePaid)
}

func (p *Processor) handleInvoicePaymentFailed(ctx context.Context, evt *Event) (outcome, error) {
	return p.setInvoiceStatus(ctx, evt, p.payments.MarkInvoicePaymentFailed)
}

func (p *Processor) setInvoiceStatus(ctx context.Context, evt *Event, set func(context.Context, string) error) (outcome, error) {
	inv := evt.Invoice
	if inv.ID == "" {
		return skipped("invoice payload has no invoice ID"), nil
	}

	if err := set(ctx, inv.ID); err != nil {
		if errors.Is(err, payment.ErrInvoiceNotFound) {
			return skipped("no recorded invoice for invoice ID"), nil
		}
		return outcome{}, err
	}
	return outcome{processed: true, meta: map[string]any{"invoice_id": inv.ID}}, nil
}

// fetchMembership does the read-through lookup. A missing membership is
// not an error; a transport fault is, so the event retries.
func (p *Processor) fetchMembership(ctx context.Context, membershipID string) (*whop.Membership, error) {
	if p.fetcher == nil || membershipID == "" {
		return nil, nil
	}
	m, err := p.fetcher.GetMembership(ctx, membershipID)
	if err != nil {
		if errors.Is(err, whop.ErrMembershipNotFound) {
			p.log.WarnContext(ctx, "membership not found at provider",
				slog.String("membership_id", membershipID))
			return nil, nil
		}
		return nil, fmt.Errorf("membership read-through failed: %w", err)
	}
	return m, nil
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

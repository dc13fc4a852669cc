package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns the payment-side ledgers: transactions, invoices, refunds.
// These record facts about money movement correlated to a subscription but
// never gate access themselves.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger overrides the default slog logger. Panics if log is nil.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log == nil {
			panic("payment: logger cannot be nil")
		}
		s.log = log
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now == nil {
			panic("payment: clock cannot be nil")
		}
		s.now = now
	}
}

// NewService creates a payment Service. Panics if store is nil.
func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("payment: store is required")
	}
	s := &Service{
		store: store,
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransactionParams describes a charge observed in a payment event.
type TransactionParams struct {
	ProviderPaymentID string
	MembershipID      string
	Email             string
	Amount            int64
	Currency          string
	Status            TransactionStatus
}

// RecordTransaction inserts a transaction for a payment event. A duplicate
// provider payment id returns the existing row without error: the unique
// constraint is defense in depth under the webhook idempotency layer, not a
// failure.
func (s *Service) RecordTransaction(ctx context.Context, params TransactionParams) (*Transaction, error) {
	if params.ProviderPaymentID == "" {
		return nil, ErrMissingProviderPaymentID
	}
	if params.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	now := s.now()
	txn := &Transaction{
		ID:                uuid.New(),
		ProviderPaymentID: params.ProviderPaymentID,
		MembershipID:      params.MembershipID,
		Email:             strings.ToLower(strings.TrimSpace(params.Email)),
		Amount:            params.Amount,
		Currency:          normalizeCurrency(params.Currency),
		Status:            params.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if txn.Status == "" {
		txn.Status = TransactionCompleted
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			s.log.InfoContext(ctx, "transaction already recorded",
				slog.String("provider_payment_id", params.ProviderPaymentID))
			return s.store.GetTransactionByProviderID(ctx, params.ProviderPaymentID)
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.log.InfoContext(ctx, "transaction recorded",
		slog.String("provider_payment_id", txn.ProviderPaymentID),
		slog.String("email", txn.Email),
		slog.Int64("amount", txn.Amount),
		slog.String("status", string(txn.Status)),
	)
	return txn, nil
}

// InvoiceParams describes an invoice observed in an invoice event.
type InvoiceParams struct {
	ProviderInvoiceID string
	MembershipID      string
	Email             string
	Amount            int64
	Currency          string
}

// RecordInvoice inserts an OPEN invoice. Duplicate provider invoice ids are
// acknowledged silently for the same reason as transactions.
func (s *Service) RecordInvoice(ctx context.Context, params InvoiceParams) (*Invoice, error) {
	if params.ProviderInvoiceID == "" {
		return nil, ErrMissingProviderPaymentID
	}

	now := s.now()
	inv := &Invoice{
		ID:                uuid.New(),
		ProviderInvoiceID: params.ProviderInvoiceID,
		MembershipID:      params.MembershipID,
		Email:             strings.ToLower(strings.TrimSpace(params.Email)),
		Amount:            params.Amount,
		Currency:          normalizeCurrency(params.Currency),
		Status:            InvoiceOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, ErrDuplicateInvoice) {
			s.log.InfoContext(ctx, "invoice already recorded",
				slog.String("provider_invoice_id", params.ProviderInvoiceID))
			return inv, nil
		}
		return nil, fmt.Errorf("failed to record invoice: %w", err)
	}

	s.log.InfoContext(ctx, "invoice recorded",
		slog.String("provider_invoice_id", inv.ProviderInvoiceID),
		slog.String("email", inv.Email),
	)
	return inv, nil
}

// MarkInvoicePaid flips an invoice to PAID. A missing invoice returns
// ErrInvoiceNotFound; the caller decides whether that is benign.
func (s *Service) MarkInvoicePaid(ctx context.Context, providerInvoiceID string) error {
	return s.setInvoiceStatus(ctx, providerInvoiceID, InvoicePaid)
}

// MarkInvoicePaymentFailed flips an invoice to PAYMENT_FAILED.
func (s *Service) MarkInvoicePaymentFailed(ctx context.Context, providerInvoiceID string) error {
	return s.setInvoiceStatus(ctx, providerInvoiceID, InvoicePaymentFailed)
}

func (s *Service) setInvoiceStatus(ctx context.Context, providerInvoiceID string, status InvoiceStatus) error {
	if err := s.store.UpdateInvoiceStatus(ctx, providerInvoiceID, status); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "invoice status updated",
		slog.String("provider_invoice_id", providerInvoiceID),
		slog.String("status", string(status)),
	)
	return nil
}

// RefundParams describes a refund observed in a refund event.
type RefundParams struct {
	ProviderRefundID  string
	ProviderPaymentID string
	Amount            int64
	Currency          string
	Partial           bool
	Reason            string
}

// ProcessRefund validates a refund against the original transaction and
// records it. The original must exist, must have completed, and the refund
// amount must not exceed the original charge. Full refunds move the
// transaction to REFUNDED, partial ones to PARTIALLY_REFUNDED.
func (s *Service) ProcessRefund(ctx context.Context, params RefundParams) (*Refund, error) {
	if params.ProviderPaymentID == "" {
		return nil, ErrMissingProviderPaymentID
	}
	if params.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn, err := s.store.GetTransactionByProviderID(ctx, params.ProviderPaymentID)
	if err != nil {
		return nil, err
	}

	switch txn.Status {
	case TransactionCompleted, TransactionPartiallyRefunded:
	default:
		return nil, fmt.Errorf("%w: transaction %s has status %s",
			ErrTransactionNotRefundable, txn.ProviderPaymentID, txn.Status)
	}
	if params.Amount > txn.Amount {
		return nil, ErrRefundExceedsTransaction
	}

	refund := &Refund{
		ID:                uuid.New(),
		ProviderRefundID:  params.ProviderRefundID,
		ProviderPaymentID: params.ProviderPaymentID,
		Amount:            params.Amount,
		Currency:          normalizeCurrency(params.Currency),
		Partial:           params.Partial || params.Amount < txn.Amount,
		Reason:            params.Reason,
		CreatedAt:         s.now(),
	}

	if err := s.store.CreateRefund(ctx, refund); err != nil {
		if errors.Is(err, ErrDuplicateRefund) {
			s.log.InfoContext(ctx, "refund already recorded",
				slog.String("provider_refund_id", params.ProviderRefundID))
			return refund, nil
		}
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}

	status := TransactionRefunded
	if refund.Partial {
		status = TransactionPartiallyRefunded
	}
	if err := s.store.UpdateTransactionStatus(ctx, txn.ProviderPaymentID, status); err != nil {
		return nil, fmt.Errorf("failed to update refunded transaction: %w", err)
	}

	s.log.InfoContext(ctx, "refund processed",
		slog.String("provider_payment_id", params.ProviderPaymentID),
		slog.Int64("amount", refund.Amount),
		slog.Bool("partial", refund.Partial),
	)
	return refund, nil
}

// GetTransactionHistory returns a customer's transactions, newest first.
func (s *Service) GetTransactionHistory(ctx context.Context, email string) ([]Transaction, error) {
	return s.store.ListTransactionsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// GetInvoices returns a customer's invoices, newest first.
func (s *Service) GetInvoices(ctx context.Context, email string) ([]Invoice, error) {
	return s.store.ListInvoicesByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// GetFinancialSummary aggregates a customer's completed charges and
// refunds.
func (s *Service) GetFinancialSummary(ctx context.Context, email string) (*Summary, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	txns, err := s.store.ListTransactionsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Email: email}
	for _, txn := range txns {
		switch txn.Status {
		case TransactionCompleted, TransactionRefunded, TransactionPartiallyRefunded:
			summary.TotalPaid += txn.Amount
			summary.TransactionCount++
		}
		if summary.Currency == "" {
			summary.Currency = txn.Currency
		}

		refunds, err := s.store.ListRefundsByPaymentID(ctx, txn.ProviderPaymentID)
		if err != nil {
			return nil, err
		}
		for _, r := range refunds {
			summary.TotalRefunded += r.Amount
			summary.RefundCount++
		}
	}
	summary.Net = summary.TotalPaid - summary.TotalRefunded
	return summary, nil
}

func normalizeCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	return strings.ToUpper(currency)
}

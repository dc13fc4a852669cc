package payment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradelog/billing/pkg/pg"
)

// DB is the pgx surface the store needs. Both *pgxpool.Pool and pgxmock
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the payment ledgers. Provider-assigned ids carry
// unique constraints so redelivered events dedupe at insert time.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed store. Panics if db is nil.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("payment: db is required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, txn *Transaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, provider_payment_id, membership_id, email, amount, currency,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		txn.ID, txn.ProviderPaymentID, txn.MembershipID, txn.Email,
		txn.Amount, txn.Currency, string(txn.Status), txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransactionByProviderID(ctx context.Context, providerPaymentID string) (*Transaction, error) {
	query := `
		SELECT id, provider_payment_id, membership_id, email, amount, currency,
			status, created_at, updated_at
		FROM payment_transactions WHERE provider_payment_id = $1`

	var (
		txn    Transaction
		status string
	)
	err := s.db.QueryRow(ctx, query, providerPaymentID).Scan(
		&txn.ID, &txn.ProviderPaymentID, &txn.MembershipID, &txn.Email,
		&txn.Amount, &txn.Currency, &status, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	txn.Status = TransactionStatus(status)
	return &txn, nil
}

func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, providerPaymentID string, status TransactionStatus) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, updated_at = now()
		WHERE provider_payment_id = $1`

	tag, err := s.db.Exec(ctx, query, providerPaymentID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (s *PostgresStore) ListTransactionsByEmail(ctx context.Context, email string) ([]Transaction, error) {
	query := `
		SELECT id, provider_payment_id, membership_id, email, amount, currency,
			status, created_at, updated_at
		FROM payment_transactions WHERE email = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			txn    Transaction
			status string
		)
		if err := rows.Scan(
			&txn.ID, &txn.ProviderPaymentID, &txn.MembershipID, &txn.Email,
			&txn.Amount, &txn.Currency, &status, &txn.CreatedAt, &txn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Status = TransactionStatus(status)
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv *Invoice) error {
	query := `
		INSERT INTO invoices (
			id, provider_invoice_id, membership_id, email, amount, currency,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		inv.ID, inv.ProviderInvoiceID, inv.MembershipID, inv.Email,
		inv.Amount, inv.Currency, string(inv.Status), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateInvoice
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateInvoiceStatus(ctx context.Context, providerInvoiceID string, status InvoiceStatus) error {
	query := `
		UPDATE invoices
		SET status = $2, updated_at = now()
		WHERE provider_invoice_id = $1`

	tag, err := s.db.Exec(ctx, query, providerInvoiceID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (s *PostgresStore) ListInvoicesByEmail(ctx context.Context, email string) ([]Invoice, error) {
	query := `
		SELECT id, provider_invoice_id, membership_id, email, amount, currency,
			status, created_at, updated_at
		FROM invoices WHERE email = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var (
			inv    Invoice
			status string
		)
		if err := rows.Scan(
			&inv.ID, &inv.ProviderInvoiceID, &inv.MembershipID, &inv.Email,
			&inv.Amount, &inv.Currency, &status, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.Status = InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateRefund(ctx context.Context, refund *Refund) error {
	query := `
		INSERT INTO refunds (
			id, provider_refund_id, provider_payment_id, amount, currency,
			partial, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		refund.ID, refund.ProviderRefundID, refund.ProviderPaymentID,
		refund.Amount, refund.Currency, refund.Partial, refund.Reason, refund.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateRefund
		}
		return fmt.Errorf("failed to insert refund: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRefundsByPaymentID(ctx context.Context, providerPaymentID string) ([]Refund, error) {
	query := `
		SELECT id, provider_refund_id, provider_payment_id, amount, currency,
			partial, reason, created_at
		FROM refunds WHERE provider_payment_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, providerPaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var out []Refund
	for rows.Next() {
		var r Refund
		if err := rows.Scan(
			&r.ID, &r.ProviderRefundID, &r.ProviderPaymentID, &r.Amount,
			&r.Currency, &r.Partial, &r.Reason, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

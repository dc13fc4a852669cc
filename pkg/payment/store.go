package payment

import "context"

// Store persists the payment-side ledgers. Create operations must enforce
// uniqueness on provider-assigned ids and return the matching Duplicate
// sentinel on conflict; the service layer decides whether a conflict is an
// error or a benign redelivery.
type Store interface {
	// CreateTransaction inserts a transaction. Returns
	// ErrDuplicateTransaction when the provider payment id already exists.
	CreateTransaction(ctx context.Context, txn *Transaction) error

	// GetTransactionByProviderID returns a transaction by its provider
	// payment id. Returns ErrTransactionNotFound if absent.
	GetTransactionByProviderID(ctx context.Context, providerPaymentID string) (*Transaction, error)

	// UpdateTransactionStatus sets the status of an existing transaction.
	// Returns ErrTransactionNotFound if absent.
	UpdateTransactionStatus(ctx context.Context, providerPaymentID string, status TransactionStatus) error

	// ListTransactionsByEmail returns a customer's transactions, newest
	// first.
	ListTransactionsByEmail(ctx context.Context, email string) ([]Transaction, error)

	// CreateInvoice inserts an invoice. Returns ErrDuplicateInvoice when
	// the provider invoice id already exists.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// UpdateInvoiceStatus sets the status of an existing invoice. Returns
	// ErrInvoiceNotFound if absent.
	UpdateInvoiceStatus(ctx context.Context, providerInvoiceID string, status InvoiceStatus) error

	// ListInvoicesByEmail returns a customer's invoices, newest first.
	ListInvoicesByEmail(ctx context.Context, email string) ([]Invoice, error)

	// CreateRefund inserts a refund. Returns ErrDuplicateRefund when the
	// provider refund id already exists.
	CreateRefund(ctx context.Context, refund *Refund) error

	// ListRefundsByPaymentID returns refunds recorded against one
	// transaction.
	ListRefundsByPaymentID(ctx context.Context, providerPaymentID string) ([]Refund, error)
}

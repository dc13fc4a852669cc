package payment

import "errors"

var (
	ErrTransactionNotFound  = errors.New("payment transaction not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrDuplicateTransaction = errors.New("payment transaction already recorded")
	ErrDuplicateInvoice     = errors.New("invoice already recorded")
	ErrDuplicateRefund      = errors.New("refund already recorded")

	ErrTransactionNotRefundable = errors.New("transaction is not in a refundable state")
	ErrRefundExceedsTransaction = errors.New("refund amount exceeds original transaction amount")
	ErrMissingProviderPaymentID = errors.New("provider payment ID is required")
	ErrInvalidAmount            = errors.New("amount must be positive")
)

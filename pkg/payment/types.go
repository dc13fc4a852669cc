package payment

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle of a recorded charge.
type TransactionStatus string

const (
	TransactionPending           TransactionStatus = "PENDING"
	TransactionCompleted         TransactionStatus = "COMPLETED"
	TransactionFailed            TransactionStatus = "FAILED"
	TransactionRefunded          TransactionStatus = "REFUNDED"
	TransactionPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
)

// InvoiceStatus is maintained from invoice webhook events, independently of
// subscription status.
type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "OPEN"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoicePaymentFailed InvoiceStatus = "PAYMENT_FAILED"
)

// Transaction records one provider charge. ProviderPaymentID carries a
// unique constraint: redelivered payment events dedupe naturally at this
// ledger even if the webhook idempotency layer is bypassed.
type Transaction struct {
	ID                uuid.UUID
	ProviderPaymentID string
	MembershipID      string
	Email             string
	Amount            int64 // smallest currency unit
	Currency          string
	Status            TransactionStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Invoice mirrors the provider's invoice object for billing history.
type Invoice struct {
	ID                uuid.UUID
	ProviderInvoiceID string
	MembershipID      string
	Email             string
	Amount            int64
	Currency          string
	Status            InvoiceStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Refund records money returned against a recorded transaction.
type Refund struct {
	ID                uuid.UUID
	ProviderRefundID  string
	ProviderPaymentID string
	Amount            int64
	Currency          string
	Partial           bool
	Reason            string
	CreatedAt         time.Time
}

// Summary aggregates a customer's payment history.
type Summary struct {
	Email            string
	TotalPaid        int64
	TotalRefunded    int64
	Net              int64
	TransactionCount int
	RefundCount      int
	Currency         string
}

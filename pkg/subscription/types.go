package subscription

// Status represents the current state of a subscription row.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusTrial     Status = "TRIAL"
	StatusPastDue   Status = "PAST_DUE"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// BillingInterval represents the billing frequency of a plan.
type BillingInterval string

const (
	IntervalMonth    BillingInterval = "month"
	IntervalQuarter  BillingInterval = "quarter"
	IntervalYear     BillingInterval = "year"
	IntervalLifetime BillingInterval = "lifetime"
)

// Money represents a monetary amount in the smallest currency unit.
// $29.00 USD is Amount: 2900, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

package subscription

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscription is the authoritative entitlement record for one customer.
// A customer is identified both by internal user id and by normalized email;
// both carry unique constraints. At most one non-cancelled subscription
// exists per identity. Rows are never hard-deleted: cancellation sets
// StatusCancelled and EndDate for audit.
type Subscription struct {
	ID               uuid.UUID
	UserID           string
	Email            string // normalized: lowercase, trimmed
	Plan             string // plan display name, uppercased (e.g. "YEARLY")
	Interval         BillingInterval
	Status           Status
	WhopMembershipID string
	EndDate          *time.Time // period end or trial end; nil for lifetime
	TrialEndsAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the subscription grants paid access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsTrial reports whether the subscription is in its trial window.
func (s *Subscription) IsTrial() bool {
	return s.Status == StatusTrial
}

// IsCancelled reports whether the subscription has been terminated.
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// Entitled reports whether the customer should currently have product
// access. Entitlement is what the rest of the application reads for access
// control; anything finer-grained derives from Plan.
func (s *Subscription) Entitled(now time.Time) bool {
	switch s.Status {
	case StatusActive, StatusTrial:
		if s.EndDate != nil && now.After(*s.EndDate) && s.Interval != IntervalLifetime {
			return false
		}
		return true
	default:
		return false
	}
}

// NormalizeEmail lowercases and trims an email so lookups by identity are
// stable across providers that vary casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package subscription

import "strings"

// legalTransitions encodes the entitlement state machine:
//
//	TRIAL    -> ACTIVE | PAST_DUE | CANCELLED | EXPIRED
//	ACTIVE   -> PAST_DUE | CANCELLED | EXPIRED
//	PAST_DUE -> ACTIVE | CANCELLED | EXPIRED
//	EXPIRED  -> ACTIVE (re-purchase resurrects the row)
//	CANCELLED is terminal for the row; a new subscription may later be
//	created for the same customer.
var legalTransitions = map[Status][]Status{
	StatusTrial:     {StatusActive, StatusPastDue, StatusCancelled, StatusExpired},
	StatusActive:    {StatusPastDue, StatusCancelled, StatusExpired},
	StatusPastDue:   {StatusActive, StatusCancelled, StatusExpired},
	StatusExpired:   {StatusActive},
	StatusCancelled: nil,
}

// CanTransition reports whether moving from one status to another is legal.
// Self-transitions are always allowed: webhook redeliveries and authoritative
// overwrites routinely re-assert the current status.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// statusFromProvider maps a Whop membership status string onto the local
// status vocabulary. Unknown statuses pass through uppercased so an
// authoritative overwrite never silently drops provider state.
func statusFromProvider(providerStatus string) Status {
	switch providerStatus {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrial
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCancelled
	case "expired":
		return StatusExpired
	default:
		return Status(strings.ToUpper(providerStatus))
	}
}

package webhook

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tradelog/billing/pkg/whop"
)

// EventType is the provider's declared event type.
type EventType string

const (
	EventMembershipActivated   EventType = "membership.activated"
	EventMembershipTrialing    EventType = "membership.trialing"
	EventMembershipUpdated     EventType = "membership.updated"
	EventMembershipDeactivated EventType = "membership.deactivated"

	EventPaymentSucceeded         EventType = "payment.succeeded"
	EventPaymentFailed            EventType = "payment.failed"
	EventPaymentRefunded          EventType = "payment.refunded"
	EventPaymentPartiallyRefunded EventType = "payment.partially_refunded"

	EventInvoiceCreated       EventType = "invoice.created"
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
)

// PaymentData is the payload of payment.* events. The provider does not
// include full membership context here; handlers that need it do a
// read-through fetch by MembershipID.
type PaymentData struct {
	ID             string         `json:"id"`
	MembershipID   string         `json:"membership_id"`
	Status         string         `json:"status"`
	FinalAmount    int64          `json:"final_amount"`
	Currency       string         `json:"currency"`
	RefundedAmount int64          `json:"refunded_amount"`
	RefundID       string         `json:"refund_id"`
	RefundReason   string         `json:"refund_reason"`
	User           *whop.User     `json:"user"`
	Metadata       map[string]any `json:"metadata"`
}

// UserEmail returns the payer's email, or "" when user data is absent.
func (p *PaymentData) UserEmail() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Email
}

// InvoiceData is the payload of invoice.* events.
type InvoiceData struct {
	ID           string     `json:"id"`
	MembershipID string     `json:"membership_id"`
	Status       string     `json:"status"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	User         *whop.User `json:"user"`
}

// UserEmail returns the invoiced customer's email, or "".
func (i *InvoiceData) UserEmail() string {
	if i == nil || i.User == nil {
		return ""
	}
	return i.User.Email
}

// Event is one decoded webhook delivery. Exactly one payload pointer is
// non-nil for known types; unknown types carry only Raw. ID is stable
// across redeliveries of the same logical event, which is what the
// idempotency ledger keys on.
type Event struct {
	ID         string
	Type       EventType
	ReceivedAt time.Time

	Membership *whop.Membership
	Payment    *PaymentData
	Invoice    *InvoiceData

	Raw json.RawMessage
}

// Known reports whether this event type has a typed payload variant.
func (e *Event) Known() bool {
	return e.Membership != nil || e.Payment != nil || e.Invoice != nil
}

type envelope struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Decode parses a verified webhook body into an Event. The provider labels
// the type under "action"; "type" is accepted as a fallback for older
// payload shapes. Unknown types decode successfully with only Raw
// populated so the router can acknowledge them without processing.
func Decode(body []byte, receivedAt time.Time) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}

	eventType := env.Action
	if eventType == "" {
		eventType = env.Type
	}
	if eventType == "" {
		return nil, ErrMissingEventType
	}
	if env.ID == "" {
		return nil, ErrMissingEventID
	}

	evt := &Event{
		ID:         env.ID,
		Type:       EventType(eventType),
		ReceivedAt: receivedAt,
		Raw:        env.Data,
	}

	switch {
	case strings.HasPrefix(eventType, "membership."):
		var m whop.Membership
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		evt.Membership = &m
	case strings.HasPrefix(eventType, "payment."):
		var p PaymentData
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		evt.Payment = &p
	case strings.HasPrefix(eventType, "invoice."):
		var i InvoiceData
		if err := json.Unmarshal(env.Data, &i); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		evt.Invoice = &i
	}
	return evt, nil
}

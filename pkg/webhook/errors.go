package webhook

import "errors"

var (
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	ErrMissingSignature = errors.New("webhook signature header is missing")
	ErrMissingSecret    = errors.New("webhook secret is required")

	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrMissingEventID   = errors.New("webhook event ID is missing")
	ErrMissingEventType = errors.New("webhook event type is missing")

	ErrAlreadyClaimed = errors.New("webhook event already claimed")
	ErrRecordNotFound = errors.New("webhook ledger record not found")
)

package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// EventID records the webhook event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the webhook event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Email records the customer email under the key "email".
func Email(email string) slog.Attr {
	return slog.String("email", email)
}

// MembershipID records the provider membership identifier under the key
// "membership_id".
func MembershipID(id string) slog.Attr {
	return slog.String("membership_id", id)
}

// AttemptNumber records the consecutive payment failure count under the key
// "attempt_number".
func AttemptNumber(n int) slog.Attr {
	return slog.Int("attempt_number", n)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

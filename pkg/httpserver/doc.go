// Package httpserver is a lightweight wrapper around net/http adding graceful
// shutdown, configurable timeouts, health-check handlers, and structured
// logging via slog.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal is
// received, then shuts the server down with a configurable deadline. Errors
// are wrapped with ErrStart and ErrShutdown for errors.Is inspection.
package httpserver

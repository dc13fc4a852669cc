package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxBodyBytes caps inbound payload size. Provider events are a few
// kilobytes; anything near the cap is not a webhook.
const DefaultMaxBodyBytes int64 = 1 << 20

// Handler is the inbound webhook endpoint. Mount it on the router's POST
// route:
//
//	r.Post("/webhooks/whop", webhook.Handler(verifier, processor, log))
//
// Responses follow the provider's retry contract: 200 on success or
// already-processed, 400 on signature or payload rejection (retrying a
// forged or malformed delivery can never succeed), 500 on handler failure
// so the provider redelivers.
func Handler(verifier *Verifier, processor *Processor, log *slog.Logger) http.HandlerFunc {
	if verifier == nil {
		panic("webhook: verifier is required")
	}
	if processor == nil {
		panic("webhook: processor is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes))
		if err != nil {
			log.WarnContext(ctx, "failed to read webhook body", slog.Any("error", err))
			respond(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
			return
		}

		// Signature covers the raw bytes; verification happens before any
		// parsing so forged payloads never reach the decoder.
		if err := verifier.Verify(body, r.Header); err != nil {
			log.WarnContext(ctx, "webhook signature rejected",
				slog.Any("error", err),
				slog.String("remote_addr", r.RemoteAddr),
			)
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		}

		evt, err := Decode(body, time.Now().UTC())
		if err != nil {
			log.WarnContext(ctx, "webhook payload rejected", slog.Any("error", err))
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		result := processor.Process(ctx, evt)
		if !result.Success {
			msg := "processing failed"
			if result.Err != nil {
				msg = result.Err.Error()
			}
			respond(w, http.StatusInternalServerError, map[string]string{"error": msg})
			return
		}

		respond(w, http.StatusOK, map[string]string{"message": "Received"})
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

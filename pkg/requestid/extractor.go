package requestid

import (
	"context"
	"log/slog"
)

// LoggerExtractor injects the request id into log records through the
// logger's context extractor chain.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}

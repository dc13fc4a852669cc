// Package requestid correlates every log line of one HTTP request,
// including a webhook delivery's claim, handler, and finalize records,
// under a single request id.
//
// Middleware assigns the id, the context helpers carry it, and
// LoggerExtractor feeds it to the logger's context extractor chain.
package requestid

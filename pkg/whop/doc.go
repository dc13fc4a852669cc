// Package whop is a minimal client for the Whop payments API.
//
// Whop is the billing provider for the service: it hosts checkout, manages
// memberships (its term for subscription instances), and delivers lifecycle
// webhooks. This client covers only what the billing pipeline needs:
// membership read-through, member lookup by email, membership listing, and
// hosted checkout creation. Webhook signature verification lives in
// pkg/webhook because it operates on the raw request body, not on API calls.
package whop

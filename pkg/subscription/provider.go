package subscription

import (
	"context"

	"github.com/tradelog/billing/pkg/whop"
)

// ProviderClient is the slice of the Whop API the manager depends on:
// member/membership lookup for the authoritative read-through and checkout
// creation. Webhook-driven mutations never call the provider through this
// interface; only the read-through and checkout paths do.
type ProviderClient interface {
	FindMemberByEmail(ctx context.Context, email string) (*whop.Member, error)
	ListMemberships(ctx context.Context, userID string, statuses []string) ([]whop.Membership, error)
	CreateCheckoutConfig(ctx context.Context, req whop.CheckoutConfigRequest) (*whop.CheckoutConfig, error)
}

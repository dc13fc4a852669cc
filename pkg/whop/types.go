package whop

// User is the Whop account attached to a membership.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Product is the Whop product a plan belongs to. Title carries the
// human-readable plan name ("TradeLog Plus Yearly" etc).
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PlanRef references the Whop pricing plan of a membership.
type PlanRef struct {
	ID string `json:"id"`
}

// Membership is Whop's representation of an active subscription instance.
// RenewalPeriodEnd and CanceledAt are unix timestamps; zero means unset.
type Membership struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	User              *User          `json:"user"`
	Product           *Product       `json:"product"`
	Plan              *PlanRef       `json:"plan"`
	Metadata          map[string]any `json:"metadata"`
	RenewalPeriodEnd  int64          `json:"renewal_period_end"`
	CancelAtPeriodEnd bool           `json:"cancel_at_period_end"`
	CanceledAt        int64          `json:"canceled_at"`
	CreatedAt         int64          `json:"created_at"`
	ManageURL         string         `json:"manage_url,omitempty"`
}

// Email returns the membership user's email, or "" when user data is absent.
func (m *Membership) UserEmail() string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Email
}

// MetadataString returns a string value from membership metadata.
func (m *Membership) MetadataString(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	if v, ok := m.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// ProductTitle returns the product title, or "" when product data is absent.
func (m *Membership) ProductTitle() string {
	if m == nil || m.Product == nil {
		return ""
	}
	return m.Product.Title
}

// PlanID returns the plan id, or "" when plan data is absent.
func (m *Membership) PlanID() string {
	if m == nil || m.Plan == nil {
		return ""
	}
	return m.Plan.ID
}

// Member is an entry from the company members listing.
type Member struct {
	ID   string `json:"id"`
	User *User  `json:"user"`
}

// CheckoutConfigRequest describes a hosted checkout session to create.
type CheckoutConfigRequest struct {
	PlanID      string         `json:"plan_id"`
	CompanyID   string         `json:"company_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RedirectURL string         `json:"redirect_url,omitempty"`
}

// CheckoutConfig is a created hosted checkout session.
type CheckoutConfig struct {
	ID          string `json:"id"`
	PurchaseURL string `json:"purchase_url"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

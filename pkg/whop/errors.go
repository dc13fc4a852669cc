package whop

import "errors"

var (
	ErrMissingAPIKey        = errors.New("whop API key is required")
	ErrMissingCompanyID     = errors.New("whop company ID is required")
	ErrMembershipNotFound   = errors.New("whop membership not found")
	ErrUnauthorized         = errors.New("whop API rejected credentials")
	ErrRequestFailed        = errors.New("whop API request failed")
	ErrUnexpectedStatusCode = errors.New("whop API returned unexpected status code")
)

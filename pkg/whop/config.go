package whop

import "time"

// Config holds credentials and endpoints for the Whop API.
type Config struct {
	APIKey        string        `env:"WHOP_API_KEY,required"`
	WebhookSecret string        `env:"WHOP_WEBHOOK_SECRET,required"`
	CompanyID     string        `env:"WHOP_COMPANY_ID,required"`
	BaseURL       string        `env:"WHOP_API_URL" envDefault:"https://api.whop.com/api/v5"`
	HTTPTimeout   time.Duration `env:"WHOP_HTTP_TIMEOUT" envDefault:"10s"`
}

package webhook

import "time"

// Config holds webhook pipeline settings loaded from the environment.
type Config struct {
	// Secret is the shared HMAC secret for signature verification.
	Secret string `env:"WHOP_WEBHOOK_SECRET,required"`

	// StaleClaimAge is how long a processing claim may sit before the
	// sweeper reclaims it.
	StaleClaimAge time.Duration `env:"WEBHOOK_STALE_CLAIM_AGE" envDefault:"15m"`

	// SweepInterval is how often stale claims are swept.
	SweepInterval time.Duration `env:"WEBHOOK_SWEEP_INTERVAL" envDefault:"1m"`

	// ResetAttemptsOnSuccess clears a membership's payment failure count
	// when a later payment succeeds.
	ResetAttemptsOnSuccess bool `env:"WEBHOOK_RESET_ATTEMPTS_ON_SUCCESS" envDefault:"false"`

	// AttemptTTL bounds how long Redis keeps a failure count.
	AttemptTTL time.Duration `env:"WEBHOOK_ATTEMPT_TTL" envDefault:"720h"`
}

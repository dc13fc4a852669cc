package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidTransition    = errors.New("invalid subscription status transition")
	ErrMissingEmail         = errors.New("customer email is required")
	ErrMissingUserID        = errors.New("user ID is required")

	ErrPlanNotFound             = errors.New("subscription plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load subscription plans")

	ErrProviderError = errors.New("billing provider error")
	ErrNoCheckoutURL = errors.New("no checkout URL returned from provider")
)

// Package subscription owns the subscription state machine and the plan
// catalog for the billing pipeline.
//
// A subscription is a single row per customer identity keyed by normalized
// email, moving through ACTIVE, TRIAL, PAST_DUE, CANCELLED, and EXPIRED.
// The Manager is the only writer: webhook handlers call its mutation
// operations (Create, Update, Cancel, HandlePaymentSuccess,
// HandlePaymentFailure), and reads that must be authoritative go through
// Resolve, which falls back to a live provider lookup and syncs the result
// into the local store.
//
// The plan catalog maps provider plan ids to internal plans and billing
// intervals. It can be loaded from a YAML file or from the built-in
// defaults:
//
//	mgr, err := subscription.NewManager(ctx,
//		subscription.StaticSource(subscription.DefaultCatalog()),
//		subscription.NewPostgresStore(pool),
//		subscription.WithProvider(whopClient),
//	)
//
// Interval resolution is catalog-first: an unknown plan id falls back to
// keyword inference on the product title, so a plan added at the provider
// before the catalog is updated still lands on a sane interval.
package subscription

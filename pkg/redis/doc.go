// Package redis provides Redis connectivity with startup retries.
// The billing service uses Redis for the durable payment-failure attempt
// counter; everything else runs against Postgres.
package redis

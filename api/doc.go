// Package api is the OpenDota access layer for dota2-tui. It turns
// UI-driven lookups into network calls while enforcing the remote rate
// limit, bounding concurrent in-flight requests, caching responses with
// TTL + LRU eviction, collapsing duplicate concurrent requests into a
// single call, and recording outcomes to an append-only request log.
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Admission control (rate, concurrency) is the only intentional bottleneck
//   - Safe concurrent use of a single *Client instance
//   - Pluggable cache / metrics / logger
//
// Typical usage:
//
//	client := api.New(
//	    api.WithRateLimit(60),
//	    api.WithCache(256, 5*time.Minute),
//	    api.WithMaxInflight(6),
//	)
//	profile, err := client.Profile(ctx, accountID)
//
// Lookups never retry automatically: a failed call surfaces a typed
// *Error and the caller decides whether to re-issue. Retrying here
// would amplify load against the remote's own rate limit.
package api

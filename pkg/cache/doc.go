// Package cache provides a Redis-backed response cache for ISS endpoints.
//
// ISS does not send cache-control metadata (no ETag, no Expires), so entry
// lifetimes are policy-driven by endpoint class: the exchange taxonomy
// (engines, markets, boards) changes rarely and caches long, historical
// candles cache for minutes, and real-time quotes are not cached at all.
// The client consults the cache before issuing a request and stores
// successful payloads afterwards; cache failures degrade to a direct
// request and never fail the call.
//
// Keys are deterministic strings derived from the endpoint path and sorted
// query parameters, so identical logical requests share one entry across
// processes pointing at the same Redis.
package cache

// Package config implements cached, typed key/value configuration access
// with TTL refresh and defaulting.
//
// The store favors availability over consistency: if the persistent source
// cannot be loaded it serves a hardcoded default set and logs a warning
// instead of failing the request, and a failed write-through degrades to an
// in-memory update. Reads during an invalidation race may briefly observe
// the old value; refreshes are idempotent reads of the same source, so
// last-write-wins between concurrent reloads is acceptable.
package config

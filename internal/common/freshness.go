package common

import "time"

// FreshnessBenchmark is the default TTL for cached index levels
const FreshnessBenchmark = 15 * time.Minute

// IsFresh returns true if the given timestamp is within the TTL.
// A non-positive TTL is never fresh.
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() || ttl <= 0 {
		return false
	}
	return time.Since(updated) < ttl
}

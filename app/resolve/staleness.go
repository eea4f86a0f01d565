package resolve

import (
	"time"
)

// IsStale reports whether an entity is due for reprocessing by an enrichment
// stage. An entity is stale when it has never been processed by the stage
// (lastProcessed is nil), or when its data has outlived the stage's TTL. The
// force override is always honored regardless of freshness; it is how an
// operator re-runs a stage against fresh data.
//
// The same policy is shared by every stage with a stage-specific TTL, so
// reprocessing cost against rate-limited upstreams stays bounded.
func IsStale(updatedAt time.Time, lastProcessed *time.Time, ttl time.Duration, force bool) bool {
	if force {
		return true
	}
	if lastProcessed == nil {
		return true
	}
	return time.Since(updatedAt) >= ttl
}

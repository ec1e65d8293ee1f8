// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Menu read metrics
	IncMenuCacheHit()
	IncMenuCacheMiss()
	ObserveMenuLoadDuration(duration time.Duration)

	// Drink management metrics
	IncDrinkCreated()
	IncDrinkUpdated()
	IncDrinkDeleted()

	// Access control metrics
	IncAuthRejected(code string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

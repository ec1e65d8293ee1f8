package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncMenuCacheHit is a no-op.
func (n *NoopRecorder) IncMenuCacheHit() {}

// IncMenuCacheMiss is a no-op.
func (n *NoopRecorder) IncMenuCacheMiss() {}

// ObserveMenuLoadDuration is a no-op.
func (n *NoopRecorder) ObserveMenuLoadDuration(duration time.Duration) {}

// IncDrinkCreated is a no-op.
func (n *NoopRecorder) IncDrinkCreated() {}

// IncDrinkUpdated is a no-op.
func (n *NoopRecorder) IncDrinkUpdated() {}

// IncDrinkDeleted is a no-op.
func (n *NoopRecorder) IncDrinkDeleted() {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected(code string) {}

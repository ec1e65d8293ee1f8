package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	MenuCacheHits         uint64
	MenuCacheMisses       uint64
	MenuLoadDurationCount uint64
	MenuLoadDurationNs    int64
	DrinksCreated         uint64
	DrinksUpdated         uint64
	DrinksDeleted         uint64
	// AuthRejections is keyed by auth error code.
	AuthRejections map[string]uint64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	menuCacheHits         uint64
	menuCacheMisses       uint64
	menuLoadDurationCount uint64
	menuLoadDurationNs    int64
	drinksCreated         uint64
	drinksUpdated         uint64
	drinksDeleted         uint64

	mu             sync.Mutex
	authRejections map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authRejections: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejections := make(map[string]uint64, len(m.authRejections))
	for code, n := range m.authRejections {
		rejections[code] = n
	}
	m.mu.Unlock()

	return Snapshot{
		MenuCacheHits:         atomic.LoadUint64(&m.menuCacheHits),
		MenuCacheMisses:       atomic.LoadUint64(&m.menuCacheMisses),
		MenuLoadDurationCount: atomic.LoadUint64(&m.menuLoadDurationCount),
		MenuLoadDurationNs:    atomic.LoadInt64(&m.menuLoadDurationNs),
		DrinksCreated:         atomic.LoadUint64(&m.drinksCreated),
		DrinksUpdated:         atomic.LoadUint64(&m.drinksUpdated),
		DrinksDeleted:         atomic.LoadUint64(&m.drinksDeleted),
		AuthRejections:        rejections,
	}
}

// IncMenuCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncMenuCacheHit() {
	atomic.AddUint64(&m.menuCacheHits, 1)
}

// IncMenuCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncMenuCacheMiss() {
	atomic.AddUint64(&m.menuCacheMisses, 1)
}

// ObserveMenuLoadDuration records how long a menu load from the store took.
func (m *InMemoryRecorder) ObserveMenuLoadDuration(duration time.Duration) {
	atomic.AddUint64(&m.menuLoadDurationCount, 1)
	atomic.AddInt64(&m.menuLoadDurationNs, duration.Nanoseconds())
}

// IncDrinkCreated increments drink created counter.
func (m *InMemoryRecorder) IncDrinkCreated() {
	atomic.AddUint64(&m.drinksCreated, 1)
}

// IncDrinkUpdated increments drink updated counter.
func (m *InMemoryRecorder) IncDrinkUpdated() {
	atomic.AddUint64(&m.drinksUpdated, 1)
}

// IncDrinkDeleted increments drink deleted counter.
func (m *InMemoryRecorder) IncDrinkDeleted() {
	atomic.AddUint64(&m.drinksDeleted, 1)
}

// IncAuthRejected counts a rejected request by auth error code.
func (m *InMemoryRecorder) IncAuthRejected(code string) {
	m.mu.Lock()
	m.authRejections[code]++
	m.mu.Unlock()
}

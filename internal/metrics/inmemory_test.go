package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncMenuCacheHit()
	m.IncMenuCacheHit()
	m.IncMenuCacheMiss()
	m.ObserveMenuLoadDuration(2 * time.Millisecond)
	m.ObserveMenuLoadDuration(3 * time.Millisecond)
	m.IncDrinkCreated()
	m.IncDrinkUpdated()
	m.IncDrinkUpdated()
	m.IncDrinkDeleted()
	m.IncAuthRejected("unauthorized")
	m.IncAuthRejected("unauthorized")
	m.IncAuthRejected("token_expired")

	snap := m.Snapshot()

	if snap.MenuCacheHits != 2 || snap.MenuCacheMisses != 1 {
		t.Errorf("cache counters = %d/%d, want 2/1", snap.MenuCacheHits, snap.MenuCacheMisses)
	}
	if snap.MenuLoadDurationCount != 2 || snap.MenuLoadDurationNs != int64(5*time.Millisecond) {
		t.Errorf("duration = %d/%d", snap.MenuLoadDurationCount, snap.MenuLoadDurationNs)
	}
	if snap.DrinksCreated != 1 || snap.DrinksUpdated != 2 || snap.DrinksDeleted != 1 {
		t.Errorf("drink counters = %d/%d/%d", snap.DrinksCreated, snap.DrinksUpdated, snap.DrinksDeleted)
	}
	if snap.AuthRejections["unauthorized"] != 2 || snap.AuthRejections["token_expired"] != 1 {
		t.Errorf("auth rejections = %v", snap.AuthRejections)
	}
}

func TestInMemoryRecorder_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncAuthRejected("invalid_header")

	snap := m.Snapshot()
	snap.AuthRejections["invalid_header"] = 99

	if got := m.Snapshot().AuthRejections["invalid_header"]; got != 1 {
		t.Errorf("snapshot mutation leaked into recorder: %d", got)
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncDrinkCreated()
			m.IncAuthRejected("unauthorized")
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.DrinksCreated != 50 {
		t.Errorf("DrinksCreated = %d, want 50", snap.DrinksCreated)
	}
	if snap.AuthRejections["unauthorized"] != 50 {
		t.Errorf("unauthorized rejections = %d, want 50", snap.AuthRejections["unauthorized"])
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncMenuCacheHit()
	r.IncMenuCacheMiss()
	r.ObserveMenuLoadDuration(time.Second)
	r.IncDrinkCreated()
	r.IncDrinkUpdated()
	r.IncDrinkDeleted()
	r.IncAuthRejected("unauthorized")
}

package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot per series in process memory and is
// safe for concurrent use. Lambda instances do not share memory, so use
// RedisStore there.
//
// With a TTL, expired snapshots are hidden from GetLatest immediately and
// removed by a background sweep; call Stop or Close to end the sweep.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	ttl       time.Duration
	now       func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store whose snapshots never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
		now:       time.Now,
	}
}

// NewMemoryStoreWithTTL creates a store that forgets snapshots generated more
// than ttl ago. The sweep runs every interval, one minute when interval <= 0.
// It panics if ttl is not positive.
func NewMemoryStoreWithTTL(ttl, interval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("storage: memory store TTL must be positive")
	}
	if interval <= 0 {
		interval = time.Minute
	}

	s := NewMemoryStore()
	s.ttl = ttl
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.sweepEvery(interval)
	return s
}

// Stop ends the background sweep and waits for it. Safe to call more than
// once and on stores without TTL.
func (s *MemoryStore) Stop() {
	if s.stop == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// Close stops the sweep so the store can be released like RedisStore.
func (s *MemoryStore) Close() error {
	s.Stop()
	return nil
}

func (s *MemoryStore) sweepEvery(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for series, snap := range s.snapshots {
		if s.expired(snap) {
			delete(s.snapshots, series)
		}
	}
}

func (s *MemoryStore) expired(snap Snapshot) bool {
	return s.ttl > 0 && s.now().Sub(snap.GeneratedAt) > s.ttl
}

// Put replaces the snapshot stored for snapshot.Series.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := ValidateSeries(snapshot.Series); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshots[snapshot.Series] = snapshot
	s.mu.Unlock()
	return nil
}

// GetLatest returns the snapshot for series and whether a live one exists.
func (s *MemoryStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	snap, ok := s.snapshots[series]
	s.mu.RUnlock()

	if !ok || s.expired(snap) {
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Len returns the number of stored snapshots, including expired ones the
// sweep has not removed yet.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

package store

import (
	"maps"
	"sync"
)

// Store holds the latest snapshot of one upstream entity kind, keyed by the
// entity's stable identifier. Refreshes write whole snapshots; gauge model
// accessors read them concurrently with scrapes.
//
// Stored maps are never mutated in place: Replace takes ownership of the map
// it is given and Merge builds a fresh map before swapping it in. Maps handed
// out by Snapshot therefore stay valid for as long as the caller holds them.
type Store[K comparable, R any] struct {
	mu   sync.RWMutex
	recs map[K]R
}

// New creates an empty store.
func New[K comparable, R any]() *Store[K, R] {
	return &Store[K, R]{recs: make(map[K]R)}
}

// Replace swaps in a complete new snapshot. The caller must not use the map
// afterwards.
func (s *Store[K, R]) Replace(recs map[K]R) {
	if recs == nil {
		recs = make(map[K]R)
	}
	s.mu.Lock()
	s.recs = recs
	s.mu.Unlock()
}

// Merge overlays recs on the current snapshot, keeping entries whose keys are
// not part of the batch. Used by partial refreshes that update one slice of
// the model at a time.
func (s *Store[K, R]) Merge(recs map[K]R) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[K]R, len(s.recs)+len(recs))
	maps.Copy(merged, s.recs)
	maps.Copy(merged, recs)
	s.recs = merged
}

// Snapshot returns the current snapshot map. The map must be treated as
// read-only.
func (s *Store[K, R]) Snapshot() map[K]R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recs
}

// Get looks up a single record.
func (s *Store[K, R]) Get(k K) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[k]
	return r, ok
}

// Len reports the number of records in the current snapshot.
func (s *Store[K, R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// Keys returns the keys of the current snapshot in unspecified order.
func (s *Store[K, R]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.recs))
	for k := range s.recs {
		keys = append(keys, k)
	}
	return keys
}

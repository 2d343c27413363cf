package fileinfo

import (
	"github.com/treeline-tools/ddiff/pkg/memocache"
	"github.com/treeline-tools/ddiff/pkg/metrics"
)

// Store is the memoized classifier: one snapshot per path, trusted as
// long as the path's modification time is bitwise unchanged. The mtime
// trust is deliberate — content rewritten without an mtime change keeps
// serving the stale snapshot until the operator resets the cache.
type Store struct {
	cache *memocache.Cache[string, statToken, *Info]
	rec   metrics.Recorder
}

// NewStore creates a path store recording cache and hash activity into
// rec.
func NewStore(rec metrics.Recorder) *Store {
	s := &Store{rec: rec}
	s.cache = memocache.New(fetchToken, validInfo, s.computeInfo)
	return s
}

// validInfo compares the stored snapshot against a fresh token: bitwise
// mtime equality, and a transition to or from "does not exist" is itself
// a validity failure.
func validInfo(stored *Info, fresh statToken) bool {
	if !fresh.found {
		return stored.Kind == KindNotFound
	}
	return stored.Kind != KindNotFound && stored.MTime == fresh.mtime()
}

// computeInfo derives a fresh snapshot; hash closures are rebuilt so a
// replaced snapshot never serves another snapshot's memoized digests.
func (s *Store) computeInfo(path string, fresh statToken) (*Info, error) {
	return newInfo(path, fresh, s.rec), nil
}

// Get returns the current snapshot for path, consulting the cache.
// A StatError from the underlying lstat propagates; absence does not.
func (s *Store) Get(path string) (*Info, error) {
	info, computed, err := s.cache.GetInfo(path)
	if err != nil {
		return nil, err
	}
	if computed {
		s.rec.AddCacheMiss(1)
	} else {
		s.rec.AddCacheHit(1)
	}
	return info, nil
}

// Len reports the number of cached snapshots.
func (s *Store) Len() int {
	return s.cache.Len()
}

// ResetAll drops every cached snapshot. The operator-triggered full
// reset goes through here.
func (s *Store) ResetAll() {
	s.cache.Reset()
}

package metrics

import (
	"sync/atomic"

	"github.com/treeline-tools/ddiff/pkg/dlog"
)

// Recorder defines the interface for collecting comparison statistics.
// The counters double as the observation point for the hashing
// performance contract: a full hash must never run when the quick hashes
// already differ, which tests verify by reading FullHashes.
type Recorder interface {
	AddCacheHit(n int64)
	AddCacheMiss(n int64)
	AddQuickHash(n int64)
	AddFullHash(n int64)
	AddMTimeShortcut(n int64)
	AddDiffComputed(n int64)
	Log()
}

// DiffMetrics holds the atomic counters for tracking comparison work.
// It is the concrete implementation of the Recorder interface.
type DiffMetrics struct {
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
	QuickHashes    atomic.Int64
	FullHashes     atomic.Int64
	MTimeShortcuts atomic.Int64
	DiffsComputed  atomic.Int64
}

func (m *DiffMetrics) AddCacheHit(n int64)      { m.CacheHits.Add(n) }
func (m *DiffMetrics) AddCacheMiss(n int64)     { m.CacheMisses.Add(n) }
func (m *DiffMetrics) AddQuickHash(n int64)     { m.QuickHashes.Add(n) }
func (m *DiffMetrics) AddFullHash(n int64)      { m.FullHashes.Add(n) }
func (m *DiffMetrics) AddMTimeShortcut(n int64) { m.MTimeShortcuts.Add(n) }
func (m *DiffMetrics) AddDiffComputed(n int64)  { m.DiffsComputed.Add(n) }

// Log prints a summary of the comparison work done so far.
func (m *DiffMetrics) Log() {
	dlog.Info("SUM",
		"cacheHits", m.CacheHits.Load(),
		"cacheMisses", m.CacheMisses.Load(),
		"quickHashes", m.QuickHashes.Load(),
		"fullHashes", m.FullHashes.Load(),
		"mtimeShortcuts", m.MTimeShortcuts.Load(),
		"diffsComputed", m.DiffsComputed.Load(),
	)
}

// NoopRecorder is an implementation of the Recorder interface that performs
// no operations. It disables metrics collection without changing the
// calling code.
type NoopRecorder struct{}

func (m *NoopRecorder) AddCacheHit(n int64)      {}
func (m *NoopRecorder) AddCacheMiss(n int64)     {}
func (m *NoopRecorder) AddQuickHash(n int64)     {}
func (m *NoopRecorder) AddFullHash(n int64)      {}
func (m *NoopRecorder) AddMTimeShortcut(n int64) {}
func (m *NoopRecorder) AddDiffComputed(n int64)  {}
func (m *NoopRecorder) Log()                     {}

// Statically assert that our types implement the interface.
var _ Recorder = (*DiffMetrics)(nil)
var _ Recorder = (*NoopRecorder)(nil)

// Package session coordinates the interactive comparison of two directory
// trees. A Session owns the current working directory relative to both
// roots, the merged listing for that directory, a fixed worker pool that
// resolves entry statuses in the background, and the per-directory
// selection memory used while navigating.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/treeline-tools/ddiff/pkg/dlog"
	"github.com/treeline-tools/ddiff/pkg/fileinfo"
	"github.com/treeline-tools/ddiff/pkg/metrics"
	"github.com/treeline-tools/ddiff/pkg/natkey"
	"github.com/treeline-tools/ddiff/pkg/treediff"
)

// DefaultWorkers is the pool size used when Options.Workers is zero.
const DefaultWorkers = 4

// Result is the outcome of one entry comparison. Err carries the
// diagnostic for different-with-read-error and unknown-with-error cases.
type Result struct {
	Status treediff.Status
	Err    error
}

// Entry is one row of the merged listing. Left and Right are the
// snapshots taken when the listing was built; either side may be a
// not-found snapshot. The result is written at most once per refresh by
// a pool worker (or synchronously for one-sided entries) and may be read
// concurrently by the renderer.
type Entry struct {
	Name  string
	Left  *fileinfo.Info
	Right *fileinfo.Info

	result atomic.Pointer[Result]
}

// Result returns the entry's current status. Entries whose comparison
// has not finished yet report unknown.
func (e *Entry) Result() Result {
	if r := e.result.Load(); r != nil {
		return *r
	}
	return Result{Status: treediff.StatusUnknown}
}

// Listing is one immutable merged directory view. Entries never grows or
// shrinks after construction; only the per-entry results change.
type Listing struct {
	Dir     string // relative to the roots, "" at the top
	Gen     uint64
	Entries []*Entry
}

type job struct {
	gen   uint64
	entry *Entry
}

// Options configures a Session.
type Options struct {
	Workers  int
	Exclude  []*regexp.Regexp // matched against entry base names
	Recorder metrics.Recorder
}

// Session is the coordinator. All navigation methods are serialized by
// an internal mutex; the Listing snapshot and per-entry results are safe
// to read without it.
type Session struct {
	leftRoot  string
	rightRoot string
	exclude   []*regexp.Regexp

	store  *fileinfo.Store
	differ *treediff.Differ

	gen     atomic.Uint64
	jobs    chan job
	quit    chan struct{}
	wg      sync.WaitGroup
	notices chan uint64

	mu        sync.Mutex
	cwd       string
	listing   *Listing
	selection int
	memory    map[string]int // relative dir -> last selected row
}

// New builds a Session over the two roots and starts its worker pool.
// Roots are made absolute; the caller validates that they exist.
func New(leftRoot, rightRoot string, opts Options) (*Session, error) {
	absLeft, err := filepath.Abs(leftRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving left root: %w", err)
	}
	absRight, err := filepath.Abs(rightRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving right root: %w", err)
	}

	rec := opts.Recorder
	if rec == nil {
		rec = &metrics.NoopRecorder{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	store := fileinfo.NewStore(rec)
	s := &Session{
		leftRoot:  absLeft,
		rightRoot: absRight,
		exclude:   opts.Exclude,
		store:     store,
		differ:    treediff.New(store, rec),
		jobs:      make(chan job),
		quit:      make(chan struct{}),
		notices:   make(chan uint64, 16),
		listing:   &Listing{},
		memory:    make(map[string]int),
	}

	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s, nil
}

// Close stops the worker pool and waits for running jobs to finish.
func (s *Session) Close() {
	close(s.quit)
	s.wg.Wait()
}

// Notices returns the redraw channel. Each value is the generation of
// the listing a worker just updated; sends are dropped when the buffer
// is full, so consumers must treat a notice as "redraw", not as a count.
func (s *Session) Notices() <-chan uint64 {
	return s.notices
}

// Listing returns the current immutable listing snapshot.
func (s *Session) Listing() *Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listing
}

// Selection returns the index of the selected row in the current listing.
func (s *Session) Selection() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// CurrentDirs returns the absolute left and right current directories.
func (s *Session) CurrentDirs() (left, right string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return joinRel(s.leftRoot, s.cwd), joinRel(s.rightRoot, s.cwd)
}

// SelectedPaths describes the selected row for the mutation and
// external-tool collaborators.
type SelectedPaths struct {
	Name        string
	Left, Right string
	LeftExists  bool
	RightExists bool
}

// SelectedPaths returns the absolute paths of the selected row. The
// second return is false when the listing is empty.
func (s *Session) SelectedPaths() (SelectedPaths, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listing.Entries) == 0 {
		return SelectedPaths{}, false
	}
	e := s.listing.Entries[s.selection]
	return SelectedPaths{
		Name:        e.Name,
		Left:        joinRel(s.leftRoot, filepath.Join(s.cwd, e.Name)),
		Right:       joinRel(s.rightRoot, filepath.Join(s.cwd, e.Name)),
		LeftExists:  e.Left.Exists(),
		RightExists: e.Right.Exists(),
	}, true
}

// Move shifts the selection by delta, clamped to the listing bounds, and
// records the new row in the per-directory memory.
func (s *Session) Move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelectionLocked(s.selection + delta)
}

// Select jumps to row index, clamped.
func (s *Session) Select(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelectionLocked(index)
}

func (s *Session) setSelectionLocked(index int) {
	if n := len(s.listing.Entries); index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	s.selection = index
	s.memory[s.cwd] = index
}

// Enter descends into the selected row when both sides are directories
// and refreshes the new level. When the row is not enterable it returns
// descended=false so the frontend can hand the selection to the diff
// tool instead.
func (s *Session) Enter() (descended bool, err error) {
	s.mu.Lock()
	if len(s.listing.Entries) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	e := s.listing.Entries[s.selection]
	if !e.Left.IsDir() || !e.Right.IsDir() {
		s.mu.Unlock()
		return false, nil
	}
	s.memory[s.cwd] = s.selection
	s.cwd = filepath.Join(s.cwd, e.Name)
	s.mu.Unlock()

	if err := s.Refresh(); err != nil {
		// Back out so the session stays on a listable directory.
		s.mu.Lock()
		s.cwd = filepath.Dir(s.cwd)
		if s.cwd == "." {
			s.cwd = ""
		}
		s.mu.Unlock()
		return false, err
	}
	return true, nil
}

// Leave ascends one level and refreshes. At the top it is a no-op.
func (s *Session) Leave() error {
	s.mu.Lock()
	if s.cwd == "" {
		s.mu.Unlock()
		return nil
	}
	s.memory[s.cwd] = s.selection
	s.cwd = filepath.Dir(s.cwd)
	if s.cwd == "." {
		s.cwd = ""
	}
	s.mu.Unlock()
	return s.Refresh()
}

// Refresh rebuilds the listing for the current directory. The full entry
// slice is constructed and published before any comparison job starts;
// one-sided entries are resolved synchronously and everything else is
// scheduled on the pool under a fresh generation, which invalidates any
// still-queued jobs from the previous listing.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// RefreshReset drops every cached snapshot first, then refreshes, so
// external modifications that kept mtimes intact are picked up too.
func (s *Session) RefreshReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ResetAll()
	return s.refreshLocked()
}

func (s *Session) refreshLocked() error {
	leftDir := joinRel(s.leftRoot, s.cwd)
	rightDir := joinRel(s.rightRoot, s.cwd)

	names, err := s.mergedNames(leftDir, rightDir)
	if err != nil {
		return err
	}

	entries := make([]*Entry, 0, len(names))
	var pending []*Entry
	for _, name := range names {
		left, err := s.store.Get(filepath.Join(leftDir, name))
		if err != nil {
			return err
		}
		right, err := s.store.Get(filepath.Join(rightDir, name))
		if err != nil {
			return err
		}
		e := &Entry{Name: name, Left: left, Right: right}
		switch {
		case !left.Exists():
			// Covers the vanished-on-both-sides race too; the
			// left side is checked first by convention.
			e.result.Store(&Result{Status: treediff.StatusRightOnly})
		case !right.Exists():
			e.result.Store(&Result{Status: treediff.StatusLeftOnly})
		default:
			pending = append(pending, e)
		}
		entries = append(entries, e)
	}

	gen := s.gen.Add(1)
	s.listing = &Listing{Dir: s.cwd, Gen: gen, Entries: entries}
	s.setSelectionLocked(s.memory[s.cwd])

	dlog.Debug("refresh", "dir", s.cwd, "gen", gen, "entries", len(entries), "pending", len(pending))

	if len(pending) > 0 {
		go s.dispatch(gen, pending)
	}
	s.notify(gen)
	return nil
}

// mergedNames lists one level of both sides, applies the exclusion
// filters, and merges the two name sets in natural order with raw-string
// deduplication.
func (s *Session) mergedNames(leftDir, rightDir string) ([]string, error) {
	leftNames, err := listDir(leftDir)
	if err != nil {
		return nil, err
	}
	rightNames, err := listDir(rightDir)
	if err != nil {
		return nil, err
	}

	keys := make([]natkey.Key, 0, len(leftNames)+len(rightNames))
	for _, name := range append(leftNames, rightNames...) {
		if !s.excluded(name) {
			keys = append(keys, natkey.Of(name))
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return natkey.Less(keys[i], keys[j])
	})

	merged := make([]string, 0, len(keys))
	for i, k := range keys {
		if i == 0 || k.Original() != keys[i-1].Original() {
			merged = append(merged, k.Original())
		}
	}
	return merged, nil
}

func (s *Session) excluded(name string) bool {
	for _, re := range s.exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func listDir(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, &fileinfo.ListError{Path: dir, Err: err}
	}
	names := make([]string, 0, len(dirents))
	for _, de := range dirents {
		names = append(names, de.Name())
	}
	return names, nil
}

func (s *Session) dispatch(gen uint64, pending []*Entry) {
	for _, e := range pending {
		select {
		case s.jobs <- job{gen: gen, entry: e}:
		case <-s.quit:
			return
		}
	}
}

func (s *Session) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case j := <-s.jobs:
			if s.gen.Load() != j.gen {
				continue // superseded listing, skip the work
			}
			status, err := s.differ.CompareSnapshots(j.entry.Left, j.entry.Right)
			if s.gen.Load() != j.gen {
				continue // refreshed while comparing, discard
			}
			j.entry.result.Store(&Result{Status: status, Err: err})
			s.notify(j.gen)
		}
	}
}

func (s *Session) notify(gen uint64) {
	select {
	case s.notices <- gen:
	default:
	}
}

func joinRel(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, rel)
}

//go:build unix

package session

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/treeline-tools/ddiff/pkg/fileinfo"
	"github.com/treeline-tools/ddiff/pkg/metrics"
	"github.com/treeline-tools/ddiff/pkg/treediff"
)

func newRoots(t *testing.T) (left, right string) {
	t.Helper()
	dir := t.TempDir()
	left = filepath.Join(dir, "left")
	right = filepath.Join(dir, "right")
	for _, d := range []string{left, right} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	return left, right
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// settle waits until no entry in the current listing reports unknown.
func settle(t *testing.T, s *Session) *Listing {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		l := s.Listing()
		done := true
		for _, e := range l.Entries {
			if e.Result().Status == treediff.StatusUnknown {
				done = false
				break
			}
		}
		if done {
			return l
		}
		if time.Now().After(deadline) {
			t.Fatal("listing did not settle")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func statuses(l *Listing) map[string]treediff.Status {
	out := make(map[string]treediff.Status, len(l.Entries))
	for _, e := range l.Entries {
		out[e.Name] = e.Result().Status
	}
	return out
}

func TestRefresh_MergeAndDedup(t *testing.T) {
	left, right := newRoots(t)
	write(t, filepath.Join(left, "a"), "x")
	write(t, filepath.Join(left, "b"), "x")
	write(t, filepath.Join(right, "b"), "x")
	write(t, filepath.Join(right, "c"), "x")
	write(t, filepath.Join(left, "d"), "x")
	write(t, filepath.Join(right, "d"), "x")

	s, err := New(left, right, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	l := settle(t, s)

	var names []string
	for _, e := range l.Entries {
		names = append(names, e.Name)
	}
	want := []string{"a", "b", "c", "d"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}

	got := statuses(l)
	if got["a"] != treediff.StatusLeftOnly {
		t.Errorf("a = %v, want leftonly", got["a"])
	}
	if got["c"] != treediff.StatusRightOnly {
		t.Errorf("c = %v, want rightonly", got["c"])
	}
	if got["b"] != treediff.StatusMatching || got["d"] != treediff.StatusMatching {
		t.Errorf("b/d = %v/%v, want matching", got["b"], got["d"])
	}
}

func TestRefresh_NaturalOrder(t *testing.T) {
	left, right := newRoots(t)
	for _, name := range []string{"file10", "file2", "File1"} {
		write(t, filepath.Join(left, name), "x")
	}

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	l := s.Listing()
	want := []string{"File1", "file2", "file10"}
	for i, e := range l.Entries {
		if e.Name != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, e.Name, want[i])
		}
	}
}

func TestRefresh_OneSidedSkipsDiffJobs(t *testing.T) {
	left, right := newRoots(t)
	write(t, filepath.Join(left, "only-left"), "x")
	write(t, filepath.Join(right, "only-right"), "x")

	rec := &metrics.DiffMetrics{}
	s, err := New(left, right, Options{Workers: 2, Recorder: rec})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	l := settle(t, s)

	got := statuses(l)
	if got["only-left"] != treediff.StatusLeftOnly || got["only-right"] != treediff.StatusRightOnly {
		t.Errorf("statuses = %v", got)
	}
	// One-sided entries are resolved synchronously during the refresh;
	// no comparison ever reaches the pool.
	if n := rec.DiffsComputed.Load(); n != 0 {
		t.Errorf("DiffsComputed = %d, want 0", n)
	}
}

func TestRefresh_Exclude(t *testing.T) {
	left, right := newRoots(t)
	write(t, filepath.Join(left, "keep.txt"), "x")
	write(t, filepath.Join(left, "skip.tmp"), "x")
	write(t, filepath.Join(right, "also.tmp"), "x")

	s, err := New(left, right, Options{
		Workers: 1,
		Exclude: []*regexp.Regexp{regexp.MustCompile(`\.tmp$`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	l := s.Listing()
	if len(l.Entries) != 1 || l.Entries[0].Name != "keep.txt" {
		t.Errorf("entries = %+v, want only keep.txt", l.Entries)
	}
}

func TestRefresh_ListErrorAborts(t *testing.T) {
	left, right := newRoots(t)
	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	before := s.Listing()

	if err := os.RemoveAll(right); err != nil {
		t.Fatal(err)
	}
	err = s.Refresh()
	var listErr *fileinfo.ListError
	if !errors.As(err, &listErr) {
		t.Fatalf("Refresh() = %v, want a ListError", err)
	}
	// The previous listing stays in place on an aborted refresh.
	if s.Listing() != before {
		t.Error("aborted refresh replaced the listing")
	}
}

func TestPool_DeterministicAcrossWorkerCounts(t *testing.T) {
	left, right := newRoots(t)
	for i := 0; i < 12; i++ {
		name := string(rune('a' + i))
		switch i % 4 {
		case 0: // matching
			write(t, filepath.Join(left, name), "same")
			write(t, filepath.Join(right, name), "same")
			at := time.Unix(1700000000, 0)
			for _, p := range []string{filepath.Join(left, name), filepath.Join(right, name)} {
				if err := os.Chtimes(p, at, at); err != nil {
					t.Fatal(err)
				}
			}
		case 1: // different
			write(t, filepath.Join(left, name), "one")
			write(t, filepath.Join(right, name), "two two")
		case 2: // leftonly
			write(t, filepath.Join(left, name), "x")
		case 3: // rightonly
			write(t, filepath.Join(right, name), "x")
		}
	}

	var reference map[string]treediff.Status
	for _, workers := range []int{1, 2, 8} {
		s, err := New(left, right, Options{Workers: workers})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Refresh(); err != nil {
			s.Close()
			t.Fatal(err)
		}
		got := statuses(settle(t, s))
		s.Close()

		if reference == nil {
			reference = got
			continue
		}
		for name, want := range reference {
			if got[name] != want {
				t.Errorf("workers=%d: %s = %v, want %v", workers, name, got[name], want)
			}
		}
	}
}

func TestRefresh_SupersedesPendingGeneration(t *testing.T) {
	left, right := newRoots(t)
	for i := 0; i < 20; i++ {
		name := string(rune('a'+i%26)) + string(rune('0'+i/26))
		write(t, filepath.Join(left, name), "payload")
		write(t, filepath.Join(right, name), "payload")
	}

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Two back-to-back refreshes: jobs queued for the first generation
	// must not leak results into the second listing's entries, and the
	// second listing must still settle completely.
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	first := s.Listing()
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	second := s.Listing()
	if second.Gen <= first.Gen {
		t.Fatalf("generation did not advance: %d then %d", first.Gen, second.Gen)
	}

	l := settle(t, s)
	if l.Gen != second.Gen {
		t.Fatalf("settled listing gen = %d, want %d", l.Gen, second.Gen)
	}
	for _, e := range l.Entries {
		if got := e.Result().Status; got != treediff.StatusMatching {
			t.Errorf("%s = %v, want matching", e.Name, got)
		}
	}
}

func TestNavigation_EnterLeaveAndMemory(t *testing.T) {
	left, right := newRoots(t)
	for _, root := range []string{left, right} {
		if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
			t.Fatal(err)
		}
		write(t, filepath.Join(root, "sub", "inner"), "x")
	}
	write(t, filepath.Join(left, "aaa"), "x")
	write(t, filepath.Join(right, "aaa"), "x")

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	// Rows: aaa, sub. Select sub and descend.
	s.Select(1)
	descended, err := s.Enter()
	if err != nil || !descended {
		t.Fatalf("Enter() = %v, %v; want descended", descended, err)
	}
	if l := s.Listing(); l.Dir != "sub" || len(l.Entries) != 1 || l.Entries[0].Name != "inner" {
		t.Fatalf("after Enter: dir=%q entries=%d", l.Dir, len(l.Entries))
	}
	cl, cr := s.CurrentDirs()
	if cl != filepath.Join(left, "sub") || cr != filepath.Join(right, "sub") {
		t.Errorf("CurrentDirs() = %q, %q", cl, cr)
	}

	// A regular file is not enterable.
	descended, err = s.Enter()
	if err != nil || descended {
		t.Fatalf("Enter() on a file = %v, %v; want not descended", descended, err)
	}

	if err := s.Leave(); err != nil {
		t.Fatal(err)
	}
	if l := s.Listing(); l.Dir != "" {
		t.Fatalf("after Leave: dir=%q", l.Dir)
	}
	// The selection memory restores the row we descended from.
	if got := s.Selection(); got != 1 {
		t.Errorf("selection after Leave = %d, want 1", got)
	}

	// Leave at the top is a no-op.
	if err := s.Leave(); err != nil {
		t.Fatal(err)
	}
}

func TestMove_Clamps(t *testing.T) {
	left, right := newRoots(t)
	write(t, filepath.Join(left, "a"), "x")
	write(t, filepath.Join(left, "b"), "x")

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}

	s.Move(100)
	if got := s.Selection(); got != 1 {
		t.Errorf("selection = %d, want clamped to 1", got)
	}
	s.Move(-100)
	if got := s.Selection(); got != 0 {
		t.Errorf("selection = %d, want clamped to 0", got)
	}
}

func TestSelectedPaths(t *testing.T) {
	left, right := newRoots(t)
	write(t, filepath.Join(left, "solo"), "x")

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}

	sel, ok := s.SelectedPaths()
	if !ok {
		t.Fatal("SelectedPaths() reported an empty listing")
	}
	if sel.Left != filepath.Join(left, "solo") || sel.Right != filepath.Join(right, "solo") {
		t.Errorf("paths = %q, %q", sel.Left, sel.Right)
	}
	if !sel.LeftExists || sel.RightExists {
		t.Errorf("existence = %v, %v; want true, false", sel.LeftExists, sel.RightExists)
	}
}

func TestRefreshReset_SeesMTimePreservedChange(t *testing.T) {
	left, right := newRoots(t)
	// Distinct mtimes so the pair is compared by content, not by the
	// mtime fast path.
	leftAt := time.Unix(1700000000, 0)
	rightAt := time.Unix(1700000500, 0)
	write(t, filepath.Join(left, "f"), "aaaa")
	write(t, filepath.Join(right, "f"), "aaaa")
	if err := os.Chtimes(filepath.Join(left, "f"), leftAt, leftAt); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(right, "f"), rightAt, rightAt); err != nil {
		t.Fatal(err)
	}

	s, err := New(left, right, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got := statuses(settle(t, s))["f"]; got != treediff.StatusMatching {
		t.Fatalf("initial status = %v, want matching", got)
	}

	// Rewrite one side with the same size and pin the mtime back. The
	// cached snapshot stays valid, so a plain Refresh reuses its
	// memoized hashes and keeps reporting matching.
	write(t, filepath.Join(left, "f"), "bbbb")
	if err := os.Chtimes(filepath.Join(left, "f"), leftAt, leftAt); err != nil {
		t.Fatal(err)
	}

	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if got := statuses(settle(t, s))["f"]; got != treediff.StatusMatching {
		t.Fatalf("after plain Refresh = %v, want matching (trusted cache)", got)
	}

	// RefreshReset drops the cache; fresh snapshots re-read the bytes.
	if err := s.RefreshReset(); err != nil {
		t.Fatal(err)
	}
	if got := statuses(settle(t, s))["f"]; got != treediff.StatusDifferent {
		t.Errorf("after RefreshReset = %v, want different", got)
	}
}

// Package treediff compares a left and right path recursively and
// reports a Status for the pair. Comparison is read-only and I/O-bound:
// stat and listing work goes through the snapshot store, content is only
// read when size and mtime leave the outcome undecided.
package treediff

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/treeline-tools/ddiff/pkg/fileinfo"
	"github.com/treeline-tools/ddiff/pkg/metrics"
)

// Differ runs tree comparisons against a shared snapshot store. Safe for
// concurrent use: all mutable state lives in the store and the recorder,
// both of which are concurrency-safe.
type Differ struct {
	store *fileinfo.Store
	rec   metrics.Recorder
}

// New creates a Differ over the given store.
func New(store *fileinfo.Store, rec metrics.Recorder) *Differ {
	return &Differ{store: store, rec: rec}
}

// Compare classifies both paths through the store and compares them.
// The returned error is diagnostic: a non-nil error with
// StatusDifferent means a file could not be read and is reported
// different rather than silently matching; with StatusUnknown it means
// metadata access failed mid-recursion.
func (d *Differ) Compare(leftPath, rightPath string) (Status, error) {
	left, err := d.store.Get(leftPath)
	if err != nil {
		return StatusUnknown, err
	}
	right, err := d.store.Get(rightPath)
	if err != nil {
		return StatusUnknown, err
	}
	return d.CompareSnapshots(left, right)
}

// CompareSnapshots compares two already-classified snapshots.
func (d *Differ) CompareSnapshots(left, right *fileinfo.Info) (Status, error) {
	d.rec.AddDiffComputed(1)
	return d.compare(left, right)
}

// maxLinkDepth bounds symlink substitution per pair. Kernel path
// resolution gives up at a similar depth with ELOOP; a chain this long
// is a cycle for our purposes.
const maxLinkDepth = 40

func (d *Differ) compare(left, right *fileinfo.Info) (Status, error) {
	// Substitute symlinks by their targets until neither side is a
	// link. A broken link resolves to a not-found snapshot and falls
	// into the one-sided rules; a link cycle runs into the depth bound
	// and surfaces as unknown with an ELOOP diagnostic.
	for depth := 0; ; depth++ {
		// The left side is tested first, so a pair missing on both
		// sides reports rightonly. Arbitrary but fixed; do not reorder.
		if left.Kind == fileinfo.KindNotFound {
			return StatusRightOnly, nil
		}
		if right.Kind == fileinfo.KindNotFound {
			return StatusLeftOnly, nil
		}
		if left.Kind != fileinfo.KindSymlink && right.Kind != fileinfo.KindSymlink {
			break
		}
		if depth >= maxLinkDepth {
			link := left
			if link.Kind != fileinfo.KindSymlink {
				link = right
			}
			return StatusUnknown, &fileinfo.StatError{Path: link.Path, Err: unix.ELOOP}
		}
		if left.Kind == fileinfo.KindSymlink {
			resolved, err := d.resolve(left)
			if err != nil {
				return StatusUnknown, err
			}
			left = resolved
			continue
		}
		resolved, err := d.resolve(right)
		if err != nil {
			return StatusUnknown, err
		}
		right = resolved
	}

	if left.Kind != right.Kind {
		return StatusDifferent, nil
	}

	switch left.Kind {
	case fileinfo.KindRegular:
		return d.compareRegular(left, right)
	case fileinfo.KindDirectory:
		return d.compareDir(left, right)
	}
	return StatusUnknown, nil
}

func (d *Differ) resolve(link *fileinfo.Info) (*fileinfo.Info, error) {
	target, err := fileinfo.ResolveSymlink(link.Path)
	if err != nil {
		return nil, err
	}
	return d.store.Get(target)
}

// compareRegular decides a file pair as cheaply as possible: size, then
// the mtime-equality fast path (content is trusted and not read), then
// the quick hash of the first block, and only then the full hash. A hash
// read failure makes the pair different with the error kept for display.
func (d *Differ) compareRegular(left, right *fileinfo.Info) (Status, error) {
	if left.Size != right.Size {
		return StatusDifferent, nil
	}
	if left.MTime == right.MTime {
		d.rec.AddMTimeShortcut(1)
		return StatusMatching, nil
	}

	leftQuick, err := left.QuickHash()
	if err != nil {
		return StatusDifferent, err
	}
	rightQuick, err := right.QuickHash()
	if err != nil {
		return StatusDifferent, err
	}
	if leftQuick != rightQuick {
		return StatusDifferent, nil
	}

	leftFull, err := left.FullHash()
	if err != nil {
		return StatusDifferent, err
	}
	rightFull, err := right.FullHash()
	if err != nil {
		return StatusDifferent, err
	}
	if leftFull != rightFull {
		return StatusDifferent, nil
	}
	return StatusMatching, nil
}

// compareDir compares the name sets first; only equal sets are walked
// child by child. The first child found different ends the scan. A child
// reported unknown also ends the scan as different — the long-standing
// behavior of this tool, preserved deliberately and pinned by a test.
func (d *Differ) compareDir(left, right *fileinfo.Info) (Status, error) {
	leftNames, err := listNames(left.Path)
	if err != nil {
		return StatusUnknown, err
	}
	rightNames, err := listNames(right.Path)
	if err != nil {
		return StatusUnknown, err
	}
	if !sameNameSet(leftNames, rightNames) {
		return StatusDifferent, nil
	}

	for _, name := range leftNames {
		childLeft, err := d.store.Get(filepath.Join(left.Path, name))
		if err != nil {
			return StatusUnknown, err
		}
		childRight, err := d.store.Get(filepath.Join(right.Path, name))
		if err != nil {
			return StatusUnknown, err
		}
		status, derr := d.compare(childLeft, childRight)
		if status == StatusDifferent || status == StatusUnknown {
			return StatusDifferent, derr
		}
	}
	return StatusMatching, nil
}

func listNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &fileinfo.ListError{Path: dir, Err: err}
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return names, nil
}

func sameNameSet(left, right []string) bool {
	if len(left) != len(right) {
		return false
	}
	seen := make(map[string]struct{}, len(left))
	for _, name := range left {
		seen[name] = struct{}{}
	}
	for _, name := range right {
		if _, ok := seen[name]; !ok {
			return false
		}
	}
	return true
}

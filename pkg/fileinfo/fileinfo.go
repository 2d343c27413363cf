// Package fileinfo classifies filesystem paths into a type+attribute
// tuple and produces point-in-time snapshots with lazily computed
// content hashes. Classification is link-aware: a terminal symlink is
// never followed, only inspected.
package fileinfo

import (
	"os"
	"path/filepath"
)

// Kind is the base file type of a path, taken directly from the OS
// file-type bits of an lstat. KindNotFound is a legitimate
// classification, not an error.
type Kind uint8

const (
	KindNotFound Kind = iota
	KindRegular
	KindDirectory
	KindSymlink
	KindBlock
	KindCharacter
	KindFIFO
	KindSocket
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindBlock:
		return "block"
	case KindCharacter:
		return "character"
	case KindFIFO:
		return "fifo"
	case KindSocket:
		return "socket"
	}
	return "unknown"
}

// Extra is the permission/link-count attribute of a path. Attributes are
// mutually exclusive; derivation applies a fixed priority per kind and
// the first matching rule wins.
type Extra uint8

const (
	ExtraNormal Extra = iota
	ExtraOrphan
	ExtraSticky
	ExtraStickyWrite
	ExtraWrite
	ExtraSetuid
	ExtraSetgid
	ExtraExecutable
	ExtraMultiLink
)

func (e Extra) String() string {
	switch e {
	case ExtraOrphan:
		return "orphan"
	case ExtraSticky:
		return "sticky"
	case ExtraStickyWrite:
		return "sticky+write"
	case ExtraWrite:
		return "write"
	case ExtraSetuid:
		return "setuid"
	case ExtraSetgid:
		return "setgid"
	case ExtraExecutable:
		return "executable"
	case ExtraMultiLink:
		return "multi-link"
	}
	return "normal"
}

// MTime is a modification time with separate seconds and nanoseconds.
// Cache validity compares it bitwise, never within a tolerance window.
type MTime struct {
	Sec  int64
	Nsec int64
}

// Info is a snapshot of one path: metadata from a single lstat plus two
// lazily computed content digests. A snapshot is owned by the refresh
// that created it and its hash fields are evaluated from at most one
// goroutine at a time.
type Info struct {
	Path  string
	MTime MTime
	Kind  Kind
	Extra Extra
	Size  int64

	quickHash func() (uint64, error)
	fullHash  func() (uint64, error)
}

// QuickHash returns the hash of up to the first 4096 bytes of the file.
// The first call reads the file; the result (or the failure) is memoized
// for the snapshot's lifetime.
func (i *Info) QuickHash() (uint64, error) {
	return i.quickHash()
}

// FullHash returns the hash over the entire content, computed by
// streaming fixed-size blocks and combining the block hashes in order.
// Memoized like QuickHash.
func (i *Info) FullHash() (uint64, error) {
	return i.fullHash()
}

// Exists reports whether the path was present at snapshot time.
func (i *Info) Exists() bool {
	return i.Kind != KindNotFound
}

// IsDir reports whether the snapshot is a directory.
func (i *Info) IsDir() bool {
	return i.Kind == KindDirectory
}

// Type returns the snapshot's classification pair.
func (i *Info) Type() TypeKey {
	return TypeKey{Kind: i.Kind, Extra: i.Extra}
}

// ResolveSymlink reads the target of a symlink, resolving a relative
// target against the link's parent directory. The target is not checked
// for existence.
func ResolveSymlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", &StatError{Path: path, Err: err}
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}

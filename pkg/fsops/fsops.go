// Package fsops implements the copy and delete actions the operator can
// trigger on a selected entry. Copies are recursive and overwrite the
// destination; regular files go through a temporary file in the target
// directory followed by an atomic rename, so an interrupted copy never
// leaves a half-written file under the destination name.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/treeline-tools/ddiff/pkg/dlog"
	"github.com/treeline-tools/ddiff/pkg/hints"
)

// CopyPath copies src to dst. Directories recurse, symlinks are
// recreated with the same target, regular files are copied with
// permissions and mtime preserved. A missing source returns a hint: the
// entry vanished between selection and confirmation, so there is nothing
// to copy.
func CopyPath(src, dst string) error {
	info, err := os.Lstat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return hints.New("copy source %s is gone", src)
	}
	if err != nil {
		return fmt.Errorf("stat copy source %s: %w", src, err)
	}

	switch mode := info.Mode(); {
	case mode.IsDir():
		return copyDir(src, dst, mode.Perm())
	case mode&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	case mode.IsRegular():
		return copyFile(src, dst, info)
	default:
		return hints.New("not copying %s: unsupported file type %s", src, mode.Type())
	}
}

// Delete removes path and everything under it. A missing path is a hint,
// not a failure.
func Delete(path string) error {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return hints.New("delete target %s is already gone", path)
	}
	dlog.Info("deleting", "path", path)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

func copyDir(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(dst, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", dst, err)
	}
	dirents, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("listing %s: %w", src, err)
	}
	for _, de := range dirents {
		if err := CopyPath(filepath.Join(src, de.Name()), filepath.Join(dst, de.Name())); err != nil {
			// A child that vanished mid-copy is skipped, anything
			// else aborts the recursion.
			if hints.IsHint(err) {
				dlog.Info("skipped during copy", "reason", err)
				continue
			}
			return err
		}
	}
	return nil
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("reading symlink %s: %w", src, err)
	}
	// Symlink fails on an existing name; recreate instead of patching.
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("creating symlink %s: %w", dst, err)
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening copy source %s: %w", src, err)
	}
	defer in.Close()

	dstDir := filepath.Dir(dst)
	out, err := os.CreateTemp(dstDir, "ddiff-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dstDir, err)
	}
	defer out.Close()

	tempPath := out.Name()
	// Cleared after a successful rename so the remove becomes a no-op.
	defer func() {
		if tempPath != "" {
			os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, tempPath, err)
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tempPath, err)
	}
	// Close flushes and may bump the mtime, so it happens before Chtimes.
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tempPath, err)
	}
	if err := os.Chtimes(tempPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("setting timestamps on %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, dst); err != nil {
		return fmt.Errorf("moving %s into place: %w", tempPath, err)
	}
	tempPath = ""
	return nil
}

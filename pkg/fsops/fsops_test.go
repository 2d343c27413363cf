//go:build unix

package fsops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/treeline-tools/ddiff/pkg/hints"
)

func TestCopyPath_RegularFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(src, 0640); err != nil {
		t.Fatal(err)
	}
	at := time.Unix(1700000000, 0)
	if err := os.Chtimes(src, at, at); err != nil {
		t.Fatal(err)
	}

	if err := CopyPath(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want %q", got, "payload")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("perm = %v, want 0640", info.Mode().Perm())
	}
	if !info.ModTime().Equal(at) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), at)
	}
}

func TestCopyPath_OverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old content"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := CopyPath(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestCopyPath_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dstDir := filepath.Join(dir, "out")
	if err := os.Mkdir(dstDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CopyPath(src, filepath.Join(dstDir, "dst")); err != nil {
		t.Fatal(err)
	}
	dirents, err := os.ReadDir(dstDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirents) != 1 || dirents[0].Name() != "dst" {
		t.Errorf("destination dir = %v, want only dst", dirents)
	}
}

func TestCopyPath_Directory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "top"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "deep"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("top", filepath.Join(src, "link")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "copy")
	if err := CopyPath(src, dst); err != nil {
		t.Fatal(err)
	}

	if got, _ := os.ReadFile(filepath.Join(dst, "sub", "deep")); string(got) != "b" {
		t.Errorf("deep content = %q, want %q", got, "b")
	}
	target, err := os.Readlink(filepath.Join(dst, "link"))
	if err != nil {
		t.Fatal(err)
	}
	if target != "top" {
		t.Errorf("link target = %q, want %q", target, "top")
	}
}

func TestCopyPath_MissingSourceIsHint(t *testing.T) {
	dir := t.TempDir()
	err := CopyPath(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if !hints.IsHint(err) {
		t.Errorf("CopyPath(missing) = %v, want a hint", err)
	}
}

func TestCopyPath_ReplacesSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.Symlink("first", src); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("stale", dst); err != nil {
		t.Fatal(err)
	}

	if err := CopyPath(src, dst); err != nil {
		t.Fatal(err)
	}
	target, err := os.Readlink(dst)
	if err != nil {
		t.Fatal(err)
	}
	if target != "first" {
		t.Errorf("link target = %q, want %q", target, "first")
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	if err := os.MkdirAll(filepath.Join(tree, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "sub", "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Delete(tree); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(tree); !os.IsNotExist(err) {
		t.Errorf("tree still present after Delete: %v", err)
	}

	if err := Delete(tree); !hints.IsHint(err) {
		t.Errorf("Delete(missing) = %v, want a hint", err)
	}
}

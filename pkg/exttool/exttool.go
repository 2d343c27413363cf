// Package exttool hands the terminal over to external programs: the
// configured diff editor for a selected file pair, and an interactive
// shell inside either side's current directory.
package exttool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/treeline-tools/ddiff/pkg/dlog"
)

// Launcher runs external commands attached to the caller's terminal.
type Launcher struct {
	// commandContext allows mocking os/exec for tests.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewLauncher creates a Launcher. A nil commandContext uses the real
// exec.CommandContext.
func NewLauncher(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *Launcher {
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &Launcher{commandContext: commandContext}
}

// DiffTool runs the configured editor command on the two selected paths.
// The editor string is a shell fragment ("$EDITOR -d" by default), so
// the whole call goes through sh -c with both paths quoted and appended.
func (l *Launcher) DiffTool(ctx context.Context, editor, leftPath, rightPath string) error {
	call := editor + " " + ShellQuote(leftPath) + " " + ShellQuote(rightPath)
	dlog.Info("running diff tool", "call", call)

	cmd := l.commandContext(ctx, "sh", "-c", call)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("diff tool '%s' failed: %w", call, err)
	}
	return nil
}

// Shell starts an interactive $SHELL (sh when unset) in dir, with
// DDIFF_LEFT and DDIFF_RIGHT pointing at the two current directories so
// the operator can script across both sides.
func (l *Launcher) Shell(ctx context.Context, dir, leftDir, rightDir string) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	dlog.Info("running shell", "shell", shell, "dir", dir)

	cmd := l.commandContext(ctx, shell)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"DDIFF_LEFT="+leftDir,
		"DDIFF_RIGHT="+rightDir,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell '%s' failed: %w", shell, err)
	}
	return nil
}

// bare matches strings that need no quoting at all.
var bare = regexp.MustCompile(`^[\w@%+=:,./-]+$`)

// ShellQuote makes a string safe to splice into an sh -c fragment.
// Harmless strings pass through unchanged; everything else is wrapped in
// single quotes with embedded single quotes escaped.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if bare.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/treeline-tools/ddiff/pkg/config"
	"github.com/treeline-tools/ddiff/pkg/dlog"
	"github.com/treeline-tools/ddiff/pkg/exttool"
	"github.com/treeline-tools/ddiff/pkg/fsops"
	"github.com/treeline-tools/ddiff/pkg/hints"
	"github.com/treeline-tools/ddiff/pkg/lscolors"
	"github.com/treeline-tools/ddiff/pkg/session"
	"github.com/treeline-tools/ddiff/pkg/treediff"
)

// ui is a line-driven frontend: one command per input line, a full
// listing redraw after every change, and asynchronous redraws when the
// worker pool resolves an entry.
type ui struct {
	sess   *session.Session
	cfg    config.Config
	colors *lscolors.Table
	tools  *exttool.Launcher

	in    io.Reader
	out   io.Writer
	lines chan string
}

func newUI(sess *session.Session, cfg config.Config, colors *lscolors.Table, tools *exttool.Launcher) *ui {
	return &ui{
		sess:   sess,
		cfg:    cfg,
		colors: colors,
		tools:  tools,
		in:     os.Stdin,
		out:    os.Stdout,
		lines:  make(chan string),
	}
}

func (u *ui) run(ctx context.Context) error {
	if err := u.sess.Refresh(); err != nil {
		return err
	}

	go func() {
		defer close(u.lines)
		scanner := bufio.NewScanner(u.in)
		for scanner.Scan() {
			u.lines <- scanner.Text()
		}
	}()

	u.redraw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-u.sess.Notices():
			u.redraw()
		case line, ok := <-u.lines:
			if !ok {
				return nil
			}
			quit, err := u.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				u.report(err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (u *ui) handle(ctx context.Context, line string) (quit bool, err error) {
	switch line {
	case "q", "quit":
		return true, nil
	case "", "j", "down":
		u.sess.Move(1)
		u.redraw()
	case "k", "up":
		u.sess.Move(-1)
		u.redraw()
	case "e", "enter":
		return false, u.enter(ctx)
	case "u", "..", "leave":
		return false, u.sess.Leave()
	case "r", "refresh":
		return false, u.sess.Refresh()
	case "R", "reset":
		return false, u.sess.RefreshReset()
	case "cl":
		return false, u.copySelected(false)
	case "cr":
		return false, u.copySelected(true)
	case "dl":
		return false, u.deleteSelected(false)
	case "dr":
		return false, u.deleteSelected(true)
	case "s":
		return false, u.shell(ctx, false)
	case "S":
		return false, u.shell(ctx, true)
	case "h", "help":
		u.printHelp()
	default:
		if row, err := strconv.Atoi(line); err == nil {
			u.sess.Select(row)
			u.redraw()
			break
		}
		fmt.Fprintf(u.out, "unknown command %q, try 'help'\n", line)
	}
	return false, nil
}

// enter descends into a directory pair, or hands a file pair to the
// configured diff tool.
func (u *ui) enter(ctx context.Context) error {
	descended, err := u.sess.Enter()
	if err != nil {
		return err
	}
	if descended {
		return nil
	}
	sel, ok := u.sess.SelectedPaths()
	if !ok {
		return nil
	}
	if !sel.LeftExists || !sel.RightExists {
		fmt.Fprintf(u.out, "%s exists on one side only, nothing to diff\n", sel.Name)
		return nil
	}
	if err := u.tools.DiffTool(ctx, u.cfg.Editor, sel.Left, sel.Right); err != nil {
		return err
	}
	return u.sess.Refresh()
}

func (u *ui) copySelected(rightToLeft bool) error {
	sel, ok := u.sess.SelectedPaths()
	if !ok {
		return nil
	}
	src, dst := sel.Left, sel.Right
	if rightToLeft {
		src, dst = sel.Right, sel.Left
	}
	if !u.confirm(fmt.Sprintf("copy %s -> %s?", src, dst)) {
		return nil
	}
	if err := fsops.CopyPath(src, dst); err != nil {
		return err
	}
	return u.sess.Refresh()
}

func (u *ui) deleteSelected(right bool) error {
	sel, ok := u.sess.SelectedPaths()
	if !ok {
		return nil
	}
	target := sel.Left
	if right {
		target = sel.Right
	}
	if !u.confirm(fmt.Sprintf("delete %s?", target)) {
		return nil
	}
	if err := fsops.Delete(target); err != nil {
		return err
	}
	return u.sess.Refresh()
}

func (u *ui) shell(ctx context.Context, right bool) error {
	left, rightDir := u.sess.CurrentDirs()
	dir := left
	if right {
		dir = rightDir
	}
	if err := u.tools.Shell(ctx, dir, left, rightDir); err != nil {
		return err
	}
	// The shell may have changed either tree.
	return u.sess.Refresh()
}

// confirm prompts and reads the next input line. Anything but an
// explicit yes declines.
func (u *ui) confirm(prompt string) bool {
	fmt.Fprintf(u.out, "%s [y/N] ", prompt)
	line, ok := <-u.lines
	if !ok {
		return false
	}
	switch strings.TrimSpace(line) {
	case "y", "yes":
		return true
	}
	fmt.Fprintln(u.out, "cancelled")
	return false
}

// report prints soft skips quietly and real errors loudly. The loop
// keeps running either way; only startup errors end the program.
func (u *ui) report(err error) {
	if hints.IsHint(err) {
		dlog.Info("skipped", "reason", err)
		fmt.Fprintf(u.out, "skipped: %v\n", err)
		return
	}
	dlog.Error("command failed", "error", err)
	fmt.Fprintf(u.out, "error: %v\n", err)
}

func (u *ui) redraw() {
	l := u.sess.Listing()
	selection := u.sess.Selection()
	leftDir, rightDir := u.sess.CurrentDirs()

	fmt.Fprintf(u.out, "\n%s | %s\n", leftDir, rightDir)
	for i, e := range l.Entries {
		cursor := " "
		if i == selection {
			cursor = ">"
		}
		res := e.Result()
		fmt.Fprintf(u.out, "%s %s %s\n", cursor, statusMarker(res.Status), u.styled(e))
	}
	if len(l.Entries) == 0 {
		fmt.Fprintln(u.out, "  (empty)")
	}
}

// styled renders the entry name in its ls color. The left side's type
// wins when the entry exists on both sides, matching the order the
// classifier is consulted in everywhere else.
func (u *ui) styled(e *session.Entry) string {
	tk := e.Left.Type()
	if !e.Left.Exists() {
		tk = e.Right.Type()
	}
	return u.colors.Style(e.Name, tk).Sprint(e.Name)
}

func statusMarker(s treediff.Status) string {
	switch s {
	case treediff.StatusMatching:
		return " "
	case treediff.StatusDifferent:
		return "*"
	case treediff.StatusLeftOnly:
		return "+"
	case treediff.StatusRightOnly:
		return "-"
	default:
		return "?"
	}
}

func (u *ui) printHelp() {
	fmt.Fprint(u.out, `commands:
  j / k / <n>  move down / up / to row n
  e            enter directory, or diff the selected files
  u            go up one level
  r / R        refresh / refresh with a cold cache
  cl / cr      copy the selection left->right / right->left
  dl / dr      delete the selection on the left / right
  s / S        shell in the left / right directory
  q            quit
`)
}

// Package hints labels errors that signal "nothing to do" rather than a
// real failure.
//
// The interactive loop triggers filesystem actions (copy, delete, launch
// an external tool) whose preconditions can quietly disappear: the
// selected entry may exist on only one side by the time the operator
// confirms. Reporting that as a hard error would interrupt the operator
// for a condition that simply means the action was skipped. Producers
// wrap such errors as hints; the frontend checks IsHint and logs instead
// of surfacing them.
//
// The check is behavioral (an IsHint() method discovered via errors.As),
// so consumers never need to import sentinel errors from the producing
// package.
package hints

import (
	"errors"
	"fmt"
)

type hintErr struct {
	err error
}

func (h *hintErr) Error() string {
	if h == nil || h.err == nil {
		return "unknown hint"
	}
	return h.err.Error()
}

func (h *hintErr) IsHint() bool  { return true }
func (h *hintErr) Unwrap() error { return h.err }

// New creates a hint from a format string. Hint messages name the path
// or entry that went away, so formatting is the common case.
func New(format string, args ...any) error {
	return &hintErr{err: fmt.Errorf(format, args...)}
}

// Wrap promotes an existing error to a hint, keeping it reachable for
// errors.Is and errors.As through the chain.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &hintErr{err: err}
}

// IsHint checks if any error in the chain behaves like a hint.
func IsHint(err error) bool {
	var h interface{ IsHint() bool }
	return errors.As(err, &h) && h.IsHint()
}

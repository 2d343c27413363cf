package fileinfo

import "fmt"

// StatError reports an OS-level failure reading metadata for a path.
// "Does not exist" is never a StatError; absence is a legitimate
// classification.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("stat %s: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error {
	return e.Err
}

// ListError reports a failed directory listing (permission denied,
// not a directory, ...).
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list %s: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// ReadError reports a content read failure while hashing. A file that
// cannot be read must never be reported as matching; the comparison
// layer treats this as "different" and keeps the error for display.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

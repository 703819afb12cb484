package filler

import "errors"

var (
	// ErrCancelled is returned by Fill when its context was cancelled.
	// It is joined with the context cause.
	ErrCancelled = errors.New("fill cancelled")
	// ErrUnsupported is returned by VolumeFreeBytes on platforms without statfs.
	ErrUnsupported = errors.New("free space query not supported on this platform")
)

// RemoveError is returned by Reset when a dummy file exists but could not be deleted.
type RemoveError struct {
	Path string
	Err  error
}

func (e *RemoveError) Error() string {
	return "failed to remove " + e.Path + ": " + e.Err.Error()
}

func (e *RemoveError) Unwrap() error {
	return e.Err
}

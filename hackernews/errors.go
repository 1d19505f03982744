package hackernews

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying: 5xx, 408, network errors
	// and attempt timeouts.
	ErrTransient = errors.New("transient upstream failure")

	// ErrNonTransient marks failures that are returned without retry: other
	// 4xx statuses and malformed payloads.
	ErrNonTransient = errors.New("non-transient upstream failure")

	// ErrRetriesExhausted marks a transient failure that outlived the retry
	// budget.
	ErrRetriesExhausted = errors.New("upstream retries exhausted")
)

// UpstreamError is returned by every Client call that could not complete.
// errors.Is matches both its kind (one of the sentinels above) and its cause.
type UpstreamError struct {
	Path       string
	StatusCode int // 0 when no response was received
	Attempts   int
	Kind       error
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("GET %s: %v after %d attempt(s): %v", e.Path, e.Kind, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsUpstream reports whether err is or wraps an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

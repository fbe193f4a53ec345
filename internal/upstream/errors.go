package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout covers both an exhausted call deadline and upstream
	// 408/504 responses.
	ErrTimeout = errors.New("upstream: request timed out")
	// ErrNetwork means the connection could not be established.
	ErrNetwork = errors.New("upstream: connection failed")
	// ErrNotFound maps HTTP 404. Never retried.
	ErrNotFound = errors.New("upstream: resource not found")
	// ErrServer maps HTTP 5xx and any other unclassified failure status.
	ErrServer = errors.New("upstream: server error")
	// ErrInvalidResponse means the upstream payload could not be decoded
	// or failed shape validation.
	ErrInvalidResponse = errors.New("upstream: invalid response")
)

// StatusError carries the HTTP status and the upstream's diagnostic
// message alongside the sentinel classification, so callers can branch on
// the exact status (e.g. 401 on a login call) without reparsing.
type StatusError struct {
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: HTTP %d", e.kind, e.Status)
	}
	return fmt.Sprintf("%v: HTTP %d: %s", e.kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// retryable reports whether another attempt may succeed. Only NotFound is
// terminal by classification; context expiry is handled by the retry loop.
func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound)
}

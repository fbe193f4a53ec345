package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrLimitExceeded matches per-identifier window failures via errors.Is.
var ErrLimitExceeded = errors.New("ratelimit: too many attempts")

// ErrCapacity is returned when the limiter cannot admit a new identifier
// because the tracked-identifier capacity is exhausted even after evicting
// stale entries. It is deliberately distinct from ErrLimitExceeded.
var ErrCapacity = errors.New("ratelimit: identifier capacity exhausted")

// LimitError reports a rejected attempt together with the window reset time.
type LimitError struct {
	Identifier string
	Limit      int
	ResetAt    time.Time

	retryAfter time.Duration
}

func (e *LimitError) Error() string {
	minutes := int(e.retryAfter.Minutes())
	if e.retryAfter > time.Duration(minutes)*time.Minute {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many attempts, retry after %d minutes", minutes)
}

// Is lets callers branch with errors.Is(err, ErrLimitExceeded).
func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// RetryAfter returns how long the caller should wait before retrying.
func (e *LimitError) RetryAfter() time.Duration {
	return e.retryAfter
}

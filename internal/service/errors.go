package service

import "errors"

var (
	// ErrNoSession means the caller holds no usable session: the cookie
	// is missing or invalid, the session was invalidated, or a required
	// token refresh failed.
	ErrNoSession = errors.New("service: no active session")

	// ErrAuthFailed covers credential and code rejections from the
	// upstream auth endpoints.
	ErrAuthFailed = errors.New("service: authentication failed")

	// ErrInvalidInput rejects a request before it reaches the limiter or
	// the network.
	ErrInvalidInput = errors.New("service: invalid input")

	// ErrCancelled reports that the caller abandoned the request before
	// it completed.
	ErrCancelled = errors.New("service: request cancelled")

	// ErrAlreadyInProgress rejects a duplicate auth action while the
	// first is still running.
	ErrAlreadyInProgress = errors.New("service: action already in progress")
)

// AuthError carries the upstream's rejection message so handlers can show
// it to the user. It matches ErrAuthFailed via errors.Is.
type AuthError struct {
	Message string
	cause   error
}

func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{Message: message, cause: cause}
}

func (e *AuthError) Error() string {
	return "service: authentication failed: " + e.Message
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

func (e *AuthError) Unwrap() error {
	return e.cause
}

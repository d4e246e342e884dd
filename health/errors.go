package health

import "errors"

var (
	// ErrCheckFailed indicates a probe failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a probe did not finish within its timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanicked indicates a probe panicked.
	ErrCheckPanicked = errors.New("health: check panicked")

	// ErrInvalidProbe indicates a registration without a name or checker.
	ErrInvalidProbe = errors.New("health: invalid probe")

	// ErrTokenMissing indicates no session token is available.
	ErrTokenMissing = errors.New("health: session token missing")

	// ErrTokenExpired indicates the session token has expired.
	ErrTokenExpired = errors.New("health: session token expired")
)

package sessions

import "errors"

var (
	// ErrNotFound covers unknown or expired sessions and participants that
	// are not in any active session. Callers recover by re-joining.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidInput rejects empty identifiers and malformed coordinates
	// before any state is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCodeTaken is returned when a generated room code collides; Create
	// retries internally, so callers normally never see it.
	ErrCodeTaken = errors.New("room code already in use")
)

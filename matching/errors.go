package matching

import "errors"

var (
	// ErrEmptySession means a match was requested for a session with no
	// participants left in it.
	ErrEmptySession = errors.New("session has no participants")

	// ErrNoLocationData means nobody in the session has shared a location
	// yet, so there is no centroid to search around.
	ErrNoLocationData = errors.New("no participant has a location")
)

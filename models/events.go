package models

import "time"

// Change-event topics published on a session's channel.
const (
	TopicMembershipChanged = "membership-changed"
	TopicPreferenceChanged = "preference-changed"
	TopicLocationChanged   = "location-changed"
	TopicResultsChanged    = "results-changed"
)

// ChangeEvent is the payload published after a committed session mutation.
// Delivery is best effort; clients re-fetch the session when in doubt.
type ChangeEvent struct {
	SessionID string    `json:"sessionId"`
	Topic     string    `json:"topic"`
	From      string    `json:"from,omitempty"`
	At        time.Time `json:"at"`
}

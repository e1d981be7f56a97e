// Package events distributes session events to the real-time transports.
//
// Session hooks publish into a Broker, which fans each event out to every
// registered Subscriber (WebSocket hub, SSE broadcaster, Kafka writer).
// Events carry the id of the session they belong to so transports can
// filter per session.
package events

import "time"

// EventType represents the type of session event.
type EventType string

// Event types for session changes.
const (
	// Session events (from the session manager).
	SessionCreated EventType = "session.created"
	SessionDeleted EventType = "session.deleted"

	// Engine events (from session hooks).
	MatchSetChanged   EventType = "matchset.changed"
	RuleStatusChanged EventType = "rule.status_changed"
	RulesApplied      EventType = "rules.applied"
	StateChanged      EventType = "state.changed"
	ComparisonUpdated EventType = "comparison.updated"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event represents a session event with type, timestamp, and data.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

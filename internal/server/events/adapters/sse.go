package adapters

import (
	"github.com/agentstation/matchrules/internal/server/events"
	"github.com/agentstation/matchrules/internal/server/sse"
)

// SSESubscriber forwards events to an SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber returns a subscriber for broadcaster.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send delivers an event to the SSE clients of its session. The broadcaster
// assigns the stream id.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event:   string(event.Type),
		Session: event.SessionID,
		Data:    event.Data,
	})
	return nil
}

// Close does nothing; the broadcaster stops with the server.
func (s *SSESubscriber) Close() error { return nil }

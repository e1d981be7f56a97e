// Package adapters connects the event broker to the WebSocket hub, the SSE
// broadcaster and Kafka.
package adapters

import (
	"github.com/agentstation/matchrules/internal/server/events"
	ws "github.com/agentstation/matchrules/internal/server/websocket"
)

// WebSocketSubscriber forwards events to a WebSocket hub.
type WebSocketSubscriber struct {
	hub *ws.Hub
}

// NewWebSocketSubscriber returns a subscriber for hub.
func NewWebSocketSubscriber(hub *ws.Hub) *WebSocketSubscriber {
	return &WebSocketSubscriber{hub: hub}
}

// Send delivers an event to the WebSocket clients of its session.
func (w *WebSocketSubscriber) Send(event events.Event) error {
	w.hub.Broadcast(ws.Message{
		Type:      string(event.Type),
		SessionID: event.SessionID,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	return nil
}

// Close does nothing; the hub stops with the server.
func (w *WebSocketSubscriber) Close() error { return nil }

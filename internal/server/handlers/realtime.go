package handlers

import (
	"net/http"

	"github.com/google/uuid"

	ws "github.com/agentstation/matchrules/internal/server/websocket"
)

// HandleWebSocket handles GET /api/v1/sessions/{id}/events/ws. The client
// receives the events of that session only.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.session(w, r, id); !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), id, h.wsHub, conn)
	h.wsHub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles GET /api/v1/sessions/{id}/events/stream.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.session(w, r, id); !ok {
		return
	}
	h.sseBroadcaster.Serve(w, r, id)
}

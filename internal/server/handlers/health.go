package handlers

import (
	"net/http"

	"github.com/agentstation/matchrules/internal/server/response"
)

// HandleHealth handles GET /api/v1/health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "matchrules-api",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. The server is ready when the
// session store answers.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	stored, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Session store not available")
		response.ServiceUnavailable(w, "Session store not available")
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"sessions_loaded":   h.sessions.Len(),
		"sessions_stored":   len(stored),
		"cache":             h.cache.Stats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}

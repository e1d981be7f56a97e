// Package handlers provides HTTP request handlers for the matchrules API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/cache"
	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/internal/server/sessions"
	"github.com/agentstation/matchrules/internal/server/sse"
	ws "github.com/agentstation/matchrules/internal/server/websocket"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	sessions       *sessions.Manager
	cache          *cache.Cache
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	validate       *validator.Validate
	logger         *zerolog.Logger
}

// New creates a new Handlers instance.
func New(
	manager *sessions.Manager,
	cache *cache.Cache,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		sessions:       manager,
		cache:          cache,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger,
	}
}

// decode reads a JSON body into v and validates it. It writes a 400 response
// and returns false on failure. Numbers are kept as json.Number so entity ids
// keep their exact form.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON request body", err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		response.BadRequest(w, "Invalid request", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fe.Namespace() + ": failed " + fe.Tag()
		if fe.Param() != "" {
			parts[i] += "=" + fe.Param()
		}
	}
	return strings.Join(parts, "; ")
}

// session resolves the session named in the path, writing the error response
// when it cannot.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request, id string) (*matchrules.Session, bool) {
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return nil, false
	}
	return s, true
}

// persist saves s after a successful mutation, writing a 500 response when
// the store fails.
func (h *Handlers) persist(ctx context.Context, w http.ResponseWriter, s *matchrules.Session) bool {
	if err := h.sessions.Save(ctx, s); err != nil {
		response.ErrorFromType(w, err)
		return false
	}
	return true
}

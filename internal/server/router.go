package server

import (
	"net/http"
	"strings"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/internal/server/handlers"
	"github.com/agentstation/matchrules/internal/server/middleware"
	"github.com/agentstation/matchrules/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.sessions,
		s.cache,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/ready", h.HandleReady)

	// Sessions collection
	mux.HandleFunc(prefix+"/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListSessions(w, r)
		case http.MethodPost:
			h.HandleCreateSession(w, r)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})

	// Everything below a session
	mux.HandleFunc(prefix+"/sessions/", func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(strings.TrimPrefix(r.URL.Path, prefix+"/sessions/"))
		if len(parts) == 0 {
			response.NotFound(w, "Session ID required", "")
			return
		}
		if !routeSession(h, w, r, parts[0], parts[1:]) {
			response.NotFound(w, "Not found", r.URL.Path)
		}
	})

	if s.config.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}
}

// routeSession dispatches /sessions/{id}/... It returns false when no route
// matches the path.
func routeSession(h *handlers.Handlers, w http.ResponseWriter, r *http.Request, id string, rest []string) bool {
	method := r.Method
	notAllowed := func() bool {
		response.MethodNotAllowed(w, method)
		return true
	}

	switch len(rest) {
	case 0:
		// /sessions/{id}
		switch method {
		case http.MethodGet:
			h.HandleGetSession(w, r, id)
		case http.MethodDelete:
			h.HandleDeleteSession(w, r, id)
		default:
			return notAllowed()
		}
		return true

	case 1:
		switch rest[0] {
		case "entities":
			if method != http.MethodPut {
				return notAllowed()
			}
			h.HandleSetEntities(w, r, id)
		case "matchsets":
			switch method {
			case http.MethodGet:
				h.HandleListMatchSets(w, r, id)
			case http.MethodPost:
				h.HandleCreateMatchSet(w, r, id)
			default:
				return notAllowed()
			}
		case "rules":
			switch method {
			case http.MethodGet:
				h.HandleListRules(w, r, id)
			case http.MethodPost:
				h.HandleAddRules(w, r, id)
			default:
				return notAllowed()
			}
		case "compare":
			switch method {
			case http.MethodGet:
				h.HandleCompare(w, r, id)
			case http.MethodPost:
				h.HandleSelectComparison(w, r, id)
			default:
				return notAllowed()
			}
		default:
			return false
		}
		return true

	case 2:
		switch {
		case rest[0] == "matchsets":
			if method != http.MethodGet {
				return notAllowed()
			}
			h.HandleGetMatchSet(w, r, id, rest[1])
		case rest[0] == "rules" && rest[1] == "generate":
			if method != http.MethodPost {
				return notAllowed()
			}
			h.HandleGenerateRules(w, r, id)
		case rest[0] == "rules" && rest[1] == "apply":
			if method != http.MethodPost {
				return notAllowed()
			}
			h.HandleApplyChanges(w, r, id)
		case rest[0] == "rules":
			if method != http.MethodGet {
				return notAllowed()
			}
			h.HandleGetRule(w, r, id, rest[1])
		case rest[0] == "events" && rest[1] == "stream":
			h.HandleSSE(w, r, id)
		case rest[0] == "events" && rest[1] == "ws":
			h.HandleWebSocket(w, r, id)
		default:
			return false
		}
		return true

	case 3:
		switch {
		case rest[0] == "matchsets" && rest[2] == "matches":
			switch method {
			case http.MethodPost:
				h.HandleAddMatch(w, r, id, rest[1])
			case http.MethodDelete:
				h.HandleRemoveMatch(w, r, id, rest[1])
			default:
				return notAllowed()
			}
		case rest[0] == "rules" && rest[2] == "status":
			if method != http.MethodPut {
				return notAllowed()
			}
			h.HandleSetRuleStatus(w, r, id, rest[1])
		default:
			return false
		}
		return true
	}
	return false
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, s.logger)
		handler = middleware.RateLimit(rateLimiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		corsConfig.AllowedOrigins = cfg.CORSOrigins
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

// splitPath splits a URL path into parts, removing empty strings.
func splitPath(path string) []string {
	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

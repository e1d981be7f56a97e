package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/internal/server/response"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled     bool
	APIKey      string
	HeaderName  string
	PublicPaths []string
}

// DefaultAuthConfig returns a disabled configuration whose public paths are
// the health, readiness and metrics endpoints under prefix.
func DefaultAuthConfig(prefix string) AuthConfig {
	return AuthConfig{
		HeaderName:  "X-API-Key",
		PublicPaths: []string{"/health", "/metrics", prefix + "/health", prefix + "/ready"},
	}
}

// Auth rejects requests to non-public paths that do not carry the API key,
// either in the configured header or as an Authorization bearer token.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(config.PublicPaths))
	for _, p := range config.PublicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := extractAPIKey(r, config.HeaderName)
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(config.APIKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", key != "").
					Msg("Authentication failed")
				metrics.RejectedRequestsTotal.WithLabelValues(metrics.ReasonUnauthorized).Inc()
				response.Unauthorized(w, "Invalid or missing API key",
					"Provide a valid API key in the "+config.HeaderName+" header")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request, header string) string {
	if key := r.Header.Get(header); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(key)
	}
	return auth
}

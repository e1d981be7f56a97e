package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/internal/server/response"
)

// visitorTTL is how long an idle client keeps its token bucket.
const visitorTTL = 10 * time.Minute

// RateLimiter holds one token bucket per client address. Each bucket allows
// limit requests per minute with a burst of limit.
type RateLimiter struct {
	limit    int
	visitors *gocache.Cache
	logger   *zerolog.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per minute per
// client.
func NewRateLimiter(limit int, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		visitors: gocache.New(visitorTTL, visitorTTL/2),
		logger:   logger,
	}
}

// Allow takes a token from the bucket of client.
func (rl *RateLimiter) Allow(client string) bool {
	return rl.limiter(client).Allow()
}

// Visitors returns the number of clients with a live bucket.
func (rl *RateLimiter) Visitors() int {
	return rl.visitors.ItemCount()
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	if v, ok := rl.visitors.Get(client); ok {
		l := v.(*rate.Limiter)
		rl.visitors.SetDefault(client, l)
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.limit)), rl.limit)
	if err := rl.visitors.Add(client, l, gocache.DefaultExpiration); err != nil {
		// lost the race; use the bucket stored first
		if v, ok := rl.visitors.Get(client); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// retryAfter is the number of seconds until the client's next token.
func (rl *RateLimiter) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(time.Minute.Seconds() / float64(rl.limit))))
}

// RateLimit rejects requests of clients that ran out of tokens.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)
			if !rl.Allow(client) {
				rl.logger.Warn().
					Str("client", client).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")
				metrics.RejectedRequestsTotal.WithLabelValues(metrics.ReasonRateLimited).Inc()
				w.Header().Set("Retry-After", rl.retryAfter())
				response.RateLimited(w, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address of the client: the first X-Forwarded-For
// entry when present, otherwise the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/edugen-platform/edugen/internal/metrics"
)

// Limiter is satisfied by the ratelimit package's memory and Redis backends.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimit limits requests per client IP under the given scope. The IP
// is the one resolved by ClientIP.
// On backend errors it fails open (allows the request through).
func IPRateLimit(l Limiter, scope string, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			key := scope + ":" + ip

			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter: backend error, failing open", "error", err, "ip", ip, "scope", scope)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				metrics.RateLimitDenialsTotal.WithLabelValues(scope).Inc()
				w.Header().Set("Retry-After", retryAfter)
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute before trying again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

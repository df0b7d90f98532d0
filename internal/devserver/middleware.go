package devserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/asadmujeeb/steeldrive/internal/ratelimit"
)

// RateLimitMiddleware enforces per-client rate limits on the session
// endpoints. Clients are keyed by remote address.
func RateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)

			if !limiter.Allow(key) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded",
				})
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens(key))))
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

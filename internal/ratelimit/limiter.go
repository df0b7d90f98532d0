// Package ratelimit caps how fast individual clients can hit the session
// API of the local dev service.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages independent rate limits keyed by client.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewLimiter allows requestsPerHour sustained requests per client with the
// given burst.
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerHour) / 3600.0),
		burst:    burst,
	}
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether the client identified by key may make a request
// now.
func (l *Limiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

// Tokens returns how many requests the client has left in its burst.
func (l *Limiter) Tokens(key string) float64 {
	return l.limiter(key).Tokens()
}

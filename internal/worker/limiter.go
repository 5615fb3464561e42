package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces requests per kind with a token bucket each. It keeps the
// unsynchronized side from flooding the host's synchronized queue.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request of the given kind may proceed
func (l *Limiter) Wait(ctx context.Context, kind string) error {
	return l.getLimiter(kind).Wait(ctx)
}

// getLimiter returns the bucket for a kind, creating it on first use
func (l *Limiter) getLimiter(kind string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[kind]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[kind]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[kind] = limiter

	return limiter
}

// SetKindRate sets a custom rate for one kind of request
func (l *Limiter) SetKindRate(kind string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[kind] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

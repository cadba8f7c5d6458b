package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agglo-acv/demande-service/pkg/logger"
)

// RateLimiter throttles clients by IP address.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond int, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// getLimiter returns a rate limiter for the given key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}

	return limiter
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)

		limiter := rl.getLimiter(key)

		if !limiter.Allow() {
			rl.log.WithField("client", key).
				WithField("path", r.URL.Path).
				Warn("limite de requêtes dépassée")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Trop de requêtes, veuillez réessayer plus tard.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops accumulated limiters once the map grows too large. Per-client
// last-use tracking is not worth the bookkeeping at this traffic level.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup starts a background goroutine to periodically cleanup old
// limiters. Stop terminates it.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-rl.stop:
				return
			}
		}
	}()
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// RateLimitConfig configures the rate limiting middleware
type RateLimitConfig struct {
	// Requests per minute for general API endpoints
	RequestsPerMinute int
	// Requests per minute for endpoints that call the LLM collaborators
	// (chat, code review, evaluation, finalize, diagnostic)
	ExpensiveRequestsPerMinute int
	// Burst size multiplier (burst = rate * multiplier)
	BurstMultiplier int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute:          120,
		ExpensiveRequestsPerMinute: 20,
		BurstMultiplier:            3,
	}
}

// Limiter throttles requests per client IP.
type Limiter struct {
	limiter ratelimit.RateLimiter
	message string
}

// NewLimiter allows perMinute requests per client with the given burst.
func NewLimiter(perMinute, burst int, message string) *Limiter {
	return &Limiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     perMinute,
			Burst:    burst,
			Interval: time.Minute,
		}),
		message: message,
	}
}

// Handler wraps next with the limiter.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)

		if !l.limiter.Allow(r.Context(), key) {
			slog.Warn("rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"` + l.message + `"}}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware creates rate limiting middleware for all endpoints
func RateLimitMiddleware(config RateLimitConfig) func(http.Handler) http.Handler {
	l := NewLimiter(config.RequestsPerMinute, config.RequestsPerMinute*config.BurstMultiplier,
		"too many requests, please try again later")
	return l.Handler
}

// ExpensiveRateLimitMiddleware creates stricter rate limiting for endpoints
// that reach the LLM collaborators.
func ExpensiveRateLimitMiddleware(config RateLimitConfig) func(http.Handler) http.Handler {
	l := NewLimiter(config.ExpensiveRequestsPerMinute, config.ExpensiveRequestsPerMinute*config.BurstMultiplier,
		"too many interviewer requests, please wait before trying again")
	return l.Handler
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

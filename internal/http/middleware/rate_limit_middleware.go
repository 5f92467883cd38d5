package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/service"
)

// RateLimiter is a fixed-window limiter keyed by client address, used in
// front of unauthenticated endpoints such as login.
type RateLimiter struct {
	counters service.CounterStore
	limit    int
	window   time.Duration
	mode     service.FailureMode
	scope    string
	keyFunc  func(r *http.Request) string
}

func NewRateLimiter(counters service.CounterStore, limit int, window time.Duration, mode service.FailureMode, scope string) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		counters: counters,
		limit:    limit,
		window:   window,
		mode:     mode,
		scope:    scope,
		keyFunc:  clientIPKey,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + rl.scope + ":" + rl.keyFunc(r)
			counter, err := rl.counters.Increment(r.Context(), key, rl.window)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "ip", "backend_error", string(rl.mode))
				if rl.mode == service.FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"mode", string(rl.mode),
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				WriteRateLimitHeaders(w.Header(), rl.limit, 0, time.Now().Add(rl.window))
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			remaining := rl.limit - int(counter.Count)
			WriteRateLimitHeaders(w.Header(), rl.limit, remaining, counter.ResetAt)
			if counter.Count > int64(rl.limit) {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "ip", "deny", string(rl.mode))
				w.Header().Set("Retry-After", retryAfterHeader(time.Until(counter.ResetAt)))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "ip", "allow", string(rl.mode))
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterHeader(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

// WriteRateLimitHeaders is shared with handlers that run the per-user guard.
func WriteRateLimitHeaders(h http.Header, limit int, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", max(limit, 0)))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}

// RetryAfter formats a Retry-After value in whole seconds.
func RetryAfter(d time.Duration) string { return retryAfterHeader(d) }

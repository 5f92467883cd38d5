package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/youthorg/admingate/internal/service"
)

type brokenCounters struct{}

func (brokenCounters) Increment(context.Context, string, time.Duration) (service.Counter, error) {
	return service.Counter{}, errors.New("down")
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = ip + ":5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(service.NewInMemoryCounterStore(), 2, time.Minute, service.FailClosed, "login")
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	for i := 0; i < 2; i++ {
		if rr := hit(h, "10.0.0.1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
	rr := hit(h, "10.0.0.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("missing rate limit headers: %v", rr.Header())
	}
	if rr := hit(h, "10.0.0.2"); rr.Code != http.StatusOK {
		t.Fatalf("other address must not be limited, got %d", rr.Code)
	}
}

func TestRateLimiterFailureModes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	open := NewRateLimiter(brokenCounters{}, 1, time.Minute, service.FailOpen, "login").Middleware()(next)
	if rr := hit(open, "10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("fail open expected 200, got %d", rr.Code)
	}
	closed := NewRateLimiter(brokenCounters{}, 1, time.Minute, service.FailClosed, "login").Middleware()(next)
	if rr := hit(closed, "10.0.0.1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("fail closed expected 429, got %d", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	h := RequestID(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

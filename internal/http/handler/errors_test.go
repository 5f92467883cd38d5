package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/service"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrInvalidCredential, http.StatusUnauthorized, "UNAUTHORIZED"},
		{service.ErrSessionRevoked, http.StatusUnauthorized, "SESSION_REVOKED"},
		{service.ErrAccountBlocked, http.StatusForbidden, "ACCOUNT_BLOCKED"},
		{service.ErrAccountNotRegistered, http.StatusForbidden, "ACCOUNT_NOT_REGISTERED"},
		{&service.MaxSessionsError{Limit: 2}, http.StatusTooManyRequests, "MAX_SESSIONS_REACHED"},
		{fmt.Errorf("wrapped: %w", service.ErrRateLimited), http.StatusTooManyRequests, "RATE_LIMITED"},
		{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{repository.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: latitude", domain.ErrInvalidLocationPatch), http.StatusBadRequest, "BAD_REQUEST"},
		{service.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != tc.code {
			t.Fatalf("%v: expected code %s, got %s", tc.err, tc.code, body.Error.Code)
		}
	}
}

type stubGuard struct {
	decision service.Decision
	err      error
	verbs    []domain.Verb
}

func (g *stubGuard) Check(_ context.Context, _ string, verb domain.Verb) (service.Decision, error) {
	g.verbs = append(g.verbs, verb)
	return g.decision, g.err
}

func TestAdmitClassifiesVerbAndWritesHeaders(t *testing.T) {
	p := &service.Principal{UserID: "u1"}
	guard := &stubGuard{decision: service.Decision{Limit: 10, Remaining: 0, ResetAt: time.Now().Add(30 * time.Second)}, err: service.ErrRateLimited}

	rr := httptest.NewRecorder()
	if admit(rr, httptest.NewRequest(http.MethodDelete, "/x", nil), guard, p) {
		t.Fatal("expected request to be rejected")
	}
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("X-RateLimit-Limit") != "10" || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("unexpected response: %d %v", rr.Code, rr.Header())
	}

	guard.err = nil
	guard.decision.Remaining = 9
	rr = httptest.NewRecorder()
	if !admit(rr, httptest.NewRequest(http.MethodPost, "/x", nil), guard, p) {
		t.Fatal("expected request to be admitted")
	}
	if len(guard.verbs) != 2 || guard.verbs[0] != domain.VerbDelete || guard.verbs[1] != domain.VerbWrite {
		t.Fatalf("unexpected verbs: %v", guard.verbs)
	}
	if !admit(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil), nil, p) {
		t.Fatal("nil guard must admit")
	}
}

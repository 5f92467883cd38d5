package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/http/middleware"
	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/service"
)

// writeServiceError maps service and repository errors onto the API error codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var capErr *service.MaxSessionsError
	switch {
	case errors.As(err, &capErr):
		response.Error(w, r, http.StatusTooManyRequests, "MAX_SESSIONS_REACHED", capErr.Error(), map[string]int{"limit": capErr.Limit})
	case errors.Is(err, service.ErrInvalidCredential), errors.Is(err, service.ErrUnauthenticated):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication failed", nil)
	case errors.Is(err, service.ErrSessionRevoked):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_REVOKED", "session has been revoked", nil)
	case errors.Is(err, service.ErrAccountBlocked):
		response.Error(w, r, http.StatusForbidden, "ACCOUNT_BLOCKED", "this account has been blocked; contact an administrator", nil)
	case errors.Is(err, service.ErrAccountNotRegistered):
		response.Error(w, r, http.StatusForbidden, "ACCOUNT_NOT_REGISTERED", "this account is not registered as an administrator", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "not allowed", nil)
	case errors.Is(err, service.ErrRateLimited):
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
	case errors.Is(err, repository.ErrSessionNotFound), errors.Is(err, repository.ErrPostNotFound), errors.Is(err, repository.ErrAccountNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, domain.ErrInvalidLocationPatch):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		slog.ErrorContext(r.Context(), "session store unavailable", "error", err)
		response.Error(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "session store unavailable", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", service.ErrInvalidInput)
	}
	return nil
}

func principal(w http.ResponseWriter, r *http.Request) (*service.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
	}
	return p, ok
}

// RequestGuard is satisfied by service.RequestGuard.
type RequestGuard interface {
	Check(ctx context.Context, userID string, verb domain.Verb) (service.Decision, error)
}

// admit runs the per-user rate limit for this request's verb. It must be
// called before any side effect.
func admit(w http.ResponseWriter, r *http.Request, guard RequestGuard, p *service.Principal) bool {
	if guard == nil {
		return true
	}
	decision, err := guard.Check(r.Context(), p.UserID, domain.ClassifyMethod(r.Method))
	if decision.Limit > 0 {
		middleware.WriteRateLimitHeaders(w.Header(), decision.Limit, decision.Remaining, decision.ResetAt)
	}
	if err != nil {
		w.Header().Set("Retry-After", middleware.RetryAfter(time.Until(decision.ResetAt)))
		writeServiceError(w, r, err)
		return false
	}
	return true
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/security"
	"github.com/youthorg/admingate/internal/service"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
	TokenContextKey     contextKey = "session_token"
)

// Authenticator is satisfied by service.SessionService.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*service.Principal, error)
}

// AuthMiddleware requires a live session. Browser page loads whose session
// was revoked are sent to revokedPath so the cookie can be cleared there;
// API calls get a JSON 401 instead.
func AuthMiddleware(auth Authenticator, revokedPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := SessionToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
				return
			}
			principal, err := auth.Authenticate(r.Context(), raw)
			switch {
			case err == nil:
			case errors.Is(err, service.ErrSessionRevoked):
				if revokedPath != "" && wantsHTML(r) {
					response.SeeOther(w, r, revokedPath)
					return
				}
				response.Error(w, r, http.StatusUnauthorized, "SESSION_REVOKED", "session has been revoked", nil)
				return
			case errors.Is(err, service.ErrStoreUnavailable):
				response.Error(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "session store unavailable", nil)
				return
			default:
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session", nil)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			ctx = context.WithValue(ctx, TokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken reads the session cookie, then an Authorization bearer header.
// Legacy JSON cookies arrive percent-encoded since quotes are not valid
// cookie bytes, so they are unescaped before decoding.
func SessionToken(r *http.Request) string {
	if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
		if len(raw) >= 3 && strings.EqualFold(raw[:3], "%7B") {
			if unescaped, err := url.QueryUnescape(raw); err == nil {
				return unescaped
			}
		}
		return raw
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func PrincipalFromContext(ctx context.Context) (*service.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*service.Principal)
	return p, ok && p != nil
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

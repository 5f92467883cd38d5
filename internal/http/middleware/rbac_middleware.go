package middleware

import (
	"net/http"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/http/response"
)

func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if !domain.HasPermission(p.Permissions, permission) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]string{"required": permission})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireElevated admits the top-level admin role or a catch-all grant.
func RequireElevated(elevatedRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if !domain.HasElevatedAuthority(p.Role, p.Permissions, elevatedRole) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "elevated authority required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

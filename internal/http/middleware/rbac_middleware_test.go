package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/service"
)

func withPrincipal(req *http.Request, p *service.Principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), PrincipalContextKey, p))
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name  string
		perms []string
		want  int
	}{
		{name: "granted", perms: []string{domain.PermPostsWrite}, want: http.StatusNoContent},
		{name: "catch-all", perms: []string{domain.PermissionAll}, want: http.StatusNoContent},
		{name: "denied", perms: []string{domain.PermPostsRead}, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mw := RequirePermission(domain.PermPostsWrite)
			req := withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), &service.Principal{Permissions: tc.perms})
			rr := httptest.NewRecorder()
			mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestRequireElevated(t *testing.T) {
	mw := RequireElevated("super_admin")
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &service.Principal{Role: "super_admin"}))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected elevated role admitted, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mw(next).ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &service.Principal{Role: "admin"}))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rr.Code)
	}
}

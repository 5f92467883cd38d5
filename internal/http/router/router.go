package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/health"
	"github.com/youthorg/admingate/internal/http/handler"
	"github.com/youthorg/admingate/internal/http/middleware"
	"github.com/youthorg/admingate/internal/http/response"
)

// RevokedPath is where page navigations land once their session is gone.
const RevokedPath = "/api/auth/revoked"

type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	SessionHandler  *handler.SessionHandler
	ActivityHandler *handler.ActivityHandler
	PostHandler     *handler.PostHandler
	Authenticator   middleware.Authenticator
	ElevatedRole    string
	LoginLimiter    func(http.Handler) http.Handler
	Readiness       *health.ProbeRunner
	EnableOTelHTTP  bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	loginLimiter := dep.LoginLimiter
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/session-status", dep.AuthHandler.SessionStatus)
			r.Get("/revoked", dep.AuthHandler.Revoked)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(dep.Authenticator, RevokedPath))

			r.Get("/sessions", dep.SessionHandler.List)
			r.Delete("/sessions", dep.SessionHandler.Revoke)
			r.Patch("/sessions/{sessionId}/location", dep.SessionHandler.UpdateLocation)

			r.With(middleware.RequireElevated(dep.ElevatedRole)).Get("/activity", dep.ActivityHandler.List)

			r.With(middleware.RequirePermission(domain.PermPostsRead)).Get("/posts", dep.PostHandler.List)
			r.With(middleware.RequirePermission(domain.PermPostsWrite)).Post("/posts", dep.PostHandler.Create)
			r.With(middleware.RequirePermission(domain.PermPostsDelete)).Delete("/posts/{id}", dep.PostHandler.Delete)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

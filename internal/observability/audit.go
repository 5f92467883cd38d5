package observability

import (
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Audit writes an audit-tagged record for a security decision. Events ending
// in ".rejected" are logged at warn level so denied logins stand out.
func Audit(r *http.Request, event string, attrs ...any) {
	level := slog.LevelInfo
	if strings.HasSuffix(event, ".rejected") {
		level = slog.LevelWarn
	}
	base := make([]any, 0, 10+len(attrs))
	base = append(base,
		"audit_event", event,
		"route", r.Method+" "+r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"request_id", chimiddleware.GetReqID(r.Context()),
	)
	slog.Log(r.Context(), level, "audit", append(base, attrs...)...)
}

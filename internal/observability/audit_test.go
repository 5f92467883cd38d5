package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestAuditRaisesLevelForRejections(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	Audit(r, "auth.login.rejected", "error", "account blocked")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v (%s)", err, buf.String())
	}
	if rec["level"] != "WARN" || rec["audit_event"] != "auth.login.rejected" || rec["route"] != "POST /api/auth/login" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["error"] != "account blocked" {
		t.Fatalf("expected caller attrs to be kept: %v", rec)
	}
}

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/youthorg/admingate/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, lp, err := NewLogger(context.Background(), &config.Config{LogLevel: "info"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if lp != nil {
		t.Fatal("expected no logger provider with otel logs disabled")
	}
	logger.Debug("hidden")
	logger.Info("session revoked", "session_id", "sid-1")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "session revoked" || rec["session_id"] != "sid-1" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestFanoutHandlerDeliversToAll(t *testing.T) {
	var a, b bytes.Buffer
	h := fanoutHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("component", "test")
	logger.Info("only json")
	logger.Error("both")

	if bytes.Count(a.Bytes(), []byte("\n")) != 2 {
		t.Fatalf("expected two JSON records, got %q", a.String())
	}
	if bytes.Count(b.Bytes(), []byte("\n")) != 1 || !bytes.Contains(b.Bytes(), []byte("component=test")) {
		t.Fatalf("expected one text record with attrs, got %q", b.String())
	}
}

func TestRecordersAreSafeWithoutProvider(t *testing.T) {
	ctx := context.Background()
	RecordRepositoryOperation(ctx, "session", "get", "success")
	RecordLoginAttempt(ctx, "success")
	RecordRateLimitDecision(ctx, "guard", "delete", "deny", "fail_closed")
	RecordKillSwitch(ctx, "blocked")
	RecordStaleSessionsReaped(ctx, 0)
	RecordStaleSessionsReaped(ctx, 2)
}

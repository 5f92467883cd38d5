package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("IDP_SIGNING_SECRET", "idp-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.SessionStaleAfter != 25*time.Hour {
		t.Fatalf("unexpected session lifetimes: ttl=%v stale=%v", cfg.SessionTTL, cfg.SessionStaleAfter)
	}
	if cfg.SessionMaxPerUser != 2 || cfg.RateLimitDelete != 10 || cfg.KillSwitchMargin != 2 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected 60s window, got %v", cfg.RateLimitWindow)
	}
	if cfg.CookieSecure {
		t.Fatal("expected insecure cookie outside production by default")
	}
}

func TestLoadProductionForcesSecureCookie(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookie in production")
	}
}

func TestLoadProtectedPrincipalsList(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROTECTED_PRINCIPALS", " Founder@Example.org, ops@example.org ,")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"founder@example.org", "ops@example.org"}
	if strings.Join(cfg.ProtectedPrincipals, "|") != strings.Join(want, "|") {
		t.Fatalf("ProtectedPrincipals=%v want %v", cfg.ProtectedPrincipals, want)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.env")
	content := "SESSION_SECRET=abcdefghijklmnopqrstuvwxyz123456\nIDP_SIGNING_SECRET=from-file\nRATE_LIMIT_DELETE=5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IDPSigningSecret != "from-file" || cfg.RateLimitDelete != 5 {
		t.Fatalf("expected env file values, got secret=%q delete=%d", cfg.IDPSigningSecret, cfg.RateLimitDelete)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "short secret", env: map[string]string{"SESSION_SECRET": "short", "IDP_SIGNING_SECRET": "x"}, want: "SESSION_SECRET"},
		{name: "redis store without addr", env: map[string]string{"SESSION_STORE": "redis"}, want: "REDIS_ADDR"},
		{name: "unknown store", env: map[string]string{"SESSION_STORE": "etcd"}, want: "SESSION_STORE"},
		{name: "bad failure mode", env: map[string]string{"RATE_LIMIT_FAILURE_MODE": "maybe"}, want: "RATE_LIMIT_FAILURE_MODE"},
		{name: "stale shorter than ttl", env: map[string]string{"SESSION_STALE_AFTER": "1h"}, want: "SESSION_STALE_AFTER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "validate config:") || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected validation error mentioning %s, got %v", tc.want, err)
			}
			if got := classifyConfigLoadError(err); got != "validation" {
				t.Fatalf("classifyConfigLoadError()=%q want validation", got)
			}
		})
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	Env             string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	SessionStore  string `mapstructure:"SESSION_STORE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	SessionSecret       string        `mapstructure:"SESSION_SECRET"`
	AcceptLegacyTokens  bool          `mapstructure:"SESSION_ACCEPT_LEGACY_TOKENS"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	SessionStaleAfter   time.Duration `mapstructure:"SESSION_STALE_AFTER"`
	SessionMaxPerUser   int           `mapstructure:"SESSION_MAX_PER_USER"`
	SessionSweepEvery   time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	CookieSecure        bool          `mapstructure:"COOKIE_SECURE"`
	LoginPath           string        `mapstructure:"LOGIN_PATH"`
	ElevatedRole        string        `mapstructure:"ELEVATED_ROLE"`
	ProtectedPrincipals []string      `mapstructure:"PROTECTED_PRINCIPALS"`

	IDPIssuer        string `mapstructure:"IDP_ISSUER"`
	IDPAudience      string `mapstructure:"IDP_AUDIENCE"`
	IDPSigningSecret string `mapstructure:"IDP_SIGNING_SECRET"`
	IDPAdminURL      string `mapstructure:"IDP_ADMIN_URL"`
	IDPTokenURL      string `mapstructure:"IDP_TOKEN_URL"`
	IDPClientID      string `mapstructure:"IDP_CLIENT_ID"`
	IDPClientSecret  string `mapstructure:"IDP_CLIENT_SECRET"`

	RateLimitBackend     string        `mapstructure:"RATE_LIMIT_BACKEND"`
	RateLimitFailureMode string        `mapstructure:"RATE_LIMIT_FAILURE_MODE"`
	RateLimitWindow      time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RateLimitRead        int           `mapstructure:"RATE_LIMIT_READ"`
	RateLimitWrite       int           `mapstructure:"RATE_LIMIT_WRITE"`
	RateLimitDelete      int           `mapstructure:"RATE_LIMIT_DELETE"`
	KillSwitchMargin     int           `mapstructure:"KILL_SWITCH_MARGIN"`
	LoginRateLimitRPM    int           `mapstructure:"LOGIN_RATE_LIMIT_RPM"`

	OTELServiceName           string        `mapstructure:"OTEL_SERVICE_NAME"`
	OTELEnvironment           string        `mapstructure:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterOTLPInsecure  bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELMetricsEnabled        bool          `mapstructure:"OTEL_METRICS_ENABLED"`
	OTELTracingEnabled        bool          `mapstructure:"OTEL_TRACING_ENABLED"`
	OTELLogsEnabled           bool          `mapstructure:"OTEL_LOGS_ENABLED"`
	OTELMetricsExportInterval time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
	OTELTraceSampleRatio      float64       `mapstructure:"OTEL_TRACE_SAMPLE_RATIO"`
}

var defaults = map[string]any{
	"HTTP_ADDR":        ":8080",
	"APP_ENV":          "development",
	"LOG_LEVEL":        "info",
	"SHUTDOWN_TIMEOUT": "15s",

	"DATABASE_DRIVER": "sqlite",
	"DATABASE_URL":    "file:admingate.db?_foreign_keys=on",

	"SESSION_STORE":  "sql",
	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"MONGO_URI":      "",
	"MONGO_DATABASE": "admingate",

	"SESSION_SECRET":               "",
	"SESSION_ACCEPT_LEGACY_TOKENS": false,
	"SESSION_TTL":                  "24h",
	"SESSION_STALE_AFTER":          "25h",
	"SESSION_MAX_PER_USER":         2,
	"SESSION_SWEEP_INTERVAL":       "1h",
	"LOGIN_PATH":                   "/login",
	"ELEVATED_ROLE":                "super_admin",
	"PROTECTED_PRINCIPALS":         "",

	"IDP_ISSUER":         "",
	"IDP_AUDIENCE":       "",
	"IDP_SIGNING_SECRET": "",
	"IDP_ADMIN_URL":      "",
	"IDP_TOKEN_URL":      "",
	"IDP_CLIENT_ID":      "",
	"IDP_CLIENT_SECRET":  "",

	"RATE_LIMIT_BACKEND":      "memory",
	"RATE_LIMIT_FAILURE_MODE": "fail_closed",
	"RATE_LIMIT_WINDOW":       "60s",
	"RATE_LIMIT_READ":         120,
	"RATE_LIMIT_WRITE":        30,
	"RATE_LIMIT_DELETE":       10,
	"KILL_SWITCH_MARGIN":      2,
	"LOGIN_RATE_LIMIT_RPM":    20,

	"OTEL_SERVICE_NAME":            "admingate",
	"OTEL_ENVIRONMENT":             "development",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "localhost:4317",
	"OTEL_EXPORTER_OTLP_INSECURE":  true,
	"OTEL_METRICS_ENABLED":         false,
	"OTEL_TRACING_ENABLED":         false,
	"OTEL_LOGS_ENABLED":            false,
	"OTEL_METRICS_EXPORT_INTERVAL": "15s",
	"OTEL_TRACE_SAMPLE_RATIO":      1.0,
}

// Load reads an optional env file, then the environment. Environment
// variables override file values.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	profile := "unknown"
	if cfg != nil {
		profile = cfg.Env
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	recordConfigValidationEvent(context.Background(), profile, outcome, classifyConfigLoadError(err))
	return cfg, err
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
				return nil, fmt.Errorf("parse %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// COOKIE_SECURE has no default so that production can tell "unset" apart.
	_ = v.BindEnv("COOKIE_SECURE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ProtectedPrincipals = normalizeList(cfg.ProtectedPrincipals)
	if cfg.IsProduction() && !v.IsSet("COOKIE_SECURE") {
		cfg.CookieSecure = true
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.IDPSigningSecret == "" {
		errs = append(errs, errors.New("IDP_SIGNING_SECRET is required"))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.SessionStore {
	case "sql", "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when SESSION_STORE=redis"))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when SESSION_STORE=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE %q is not supported", c.SessionStore))
	}
	switch c.RateLimitBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when RATE_LIMIT_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q is not supported", c.RateLimitBackend))
	}
	if c.RateLimitFailureMode != "fail_open" && c.RateLimitFailureMode != "fail_closed" {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_FAILURE_MODE %q is not supported", c.RateLimitFailureMode))
	}
	if c.SessionTTL <= 0 || c.SessionStaleAfter <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("SESSION_TTL, SESSION_STALE_AFTER and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.SessionStaleAfter < c.SessionTTL {
		errs = append(errs, errors.New("SESSION_STALE_AFTER must not be shorter than SESSION_TTL"))
	}
	if c.SessionSweepEvery < 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must not be negative"))
	}
	if c.SessionMaxPerUser <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_PER_USER must be positive"))
	}
	if c.RateLimitRead <= 0 || c.RateLimitWrite <= 0 || c.RateLimitDelete <= 0 || c.KillSwitchMargin < 0 {
		errs = append(errs, errors.New("rate limits must be positive and KILL_SWITCH_MARGIN non-negative"))
	}
	if c.IDPAdminURL != "" && (c.IDPTokenURL == "" || c.IDPClientID == "") {
		errs = append(errs, errors.New("IDP_TOKEN_URL and IDP_CLIENT_ID are required with IDP_ADMIN_URL"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

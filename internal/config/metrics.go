package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	validationOnce    sync.Once
	validationCounter metric.Int64Counter
)

func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	validationOnce.Do(func() {
		counter, err := otel.Meter("admingate").Int64Counter("config.validation.events")
		if err == nil {
			validationCounter = counter
		}
	})
	if validationCounter == nil {
		return
	}
	validationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profileLabel(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func profileLabel(profile string) string {
	if v := strings.ToLower(strings.TrimSpace(profile)); v != "" {
		return v
	}
	return "unknown"
}

// classifyConfigLoadError buckets a Load error for the validation counter.
// Secret and backend problems get their own class.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "validate config:") && strings.Contains(msg, "SECRET"):
		return "secret"
	case strings.HasPrefix(msg, "validate config:") && containsAny(msg, "SESSION_STORE", "RATE_LIMIT_BACKEND", "REDIS_ADDR", "MONGO_URI", "DATABASE_"):
		return "backend"
	case strings.HasPrefix(msg, "validate config:"):
		return "validation"
	case strings.HasPrefix(msg, "parse config:"):
		return "decode"
	case strings.HasPrefix(msg, "parse "):
		return "env_file"
	default:
		return "load"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

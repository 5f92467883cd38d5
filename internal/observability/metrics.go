package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/youthorg/admingate/internal/config"
)

const meterName = "admingate"

type appMetrics struct {
	repositoryOps     metric.Int64Counter
	loginAttempts     metric.Int64Counter
	sessionRevokes    metric.Int64Counter
	sessionStatus     metric.Int64Counter
	tokenValidations  metric.Int64Counter
	rateLimitDecision metric.Int64Counter
	killSwitch        metric.Int64Counter
	activityFailures  metric.Int64Counter
	staleReaped       metric.Int64Counter
}

var (
	metricsOnce sync.Once
	instruments *appMetrics
)

// Instruments are created against the global provider, which forwards to
// whatever provider InitMetrics installs later.
func loadMetrics() *appMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		m := &appMetrics{}
		var errs []error
		counter := func(name, desc string) metric.Int64Counter {
			c, err := meter.Int64Counter(name, metric.WithDescription(desc))
			if err != nil {
				errs = append(errs, err)
			}
			return c
		}
		m.repositoryOps = counter("repository.operations", "repository calls by repo, operation and outcome")
		m.loginAttempts = counter("auth.login.attempts", "login attempts by outcome")
		m.sessionRevokes = counter("session.revocations", "session revocations by actor kind")
		m.sessionStatus = counter("session.status.checks", "session liveness checks by result")
		m.tokenValidations = counter("auth.token.validations", "session token validations by result and source")
		m.rateLimitDecision = counter("ratelimit.decisions", "rate limit decisions by scope, verb and decision")
		m.killSwitch = counter("killswitch.events", "automatic account block attempts by outcome")
		m.activityFailures = counter("activity.log.failures", "activity log writes that failed")
		m.staleReaped = counter("session.stale.reaped", "stale session records removed")
		if len(errs) > 0 {
			slog.Warn("metric instrument creation failed", "errors", fmt.Sprint(errs))
			return
		}
		instruments = m
	})
	return instruments
}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

func add(ctx context.Context, pick func(*appMetrics) metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	m := loadMetrics()
	if m == nil {
		return
	}
	pick(m).Add(ctx, n, metric.WithAttributes(attrs...))
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.repositoryOps }, 1,
		attribute.String("repository", repo),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
}

func RecordLoginAttempt(ctx context.Context, outcome string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.loginAttempts }, 1, attribute.String("outcome", outcome))
}

func RecordSessionRevocation(ctx context.Context, actorKind string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.sessionRevokes }, 1, attribute.String("actor", actorKind))
}

func RecordSessionStatusCheck(ctx context.Context, result string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.sessionStatus }, 1, attribute.String("result", result))
}

func RecordAccessTokenValidation(ctx context.Context, result, source string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.tokenValidations }, 1,
		attribute.String("result", result),
		attribute.String("source", source),
	)
}

func RecordRateLimitDecision(ctx context.Context, scope, verb, decision, mode string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.rateLimitDecision }, 1,
		attribute.String("scope", scope),
		attribute.String("verb", verb),
		attribute.String("decision", decision),
		attribute.String("mode", mode),
	)
}

func RecordKillSwitch(ctx context.Context, outcome string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.killSwitch }, 1, attribute.String("outcome", outcome))
}

func RecordActivityLogFailure(ctx context.Context, action string) {
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.activityFailures }, 1, attribute.String("action", action))
}

func RecordStaleSessionsReaped(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	add(ctx, func(m *appMetrics) metric.Int64Counter { return m.staleReaped }, int64(n))
}

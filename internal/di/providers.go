package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/youthorg/admingate/internal/app"
	"github.com/youthorg/admingate/internal/config"
	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/health"
	"github.com/youthorg/admingate/internal/http/handler"
	"github.com/youthorg/admingate/internal/http/middleware"
	"github.com/youthorg/admingate/internal/http/router"
	"github.com/youthorg/admingate/internal/identity"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/security"
	"github.com/youthorg/admingate/internal/service"
)

// Server is everything the serve command needs.
type Server struct {
	App      *app.App
	Accounts *service.AccountService
}

// Maintenance backs the operator commands that run without an HTTP server.
type Maintenance struct {
	Logger   *slog.Logger
	DB       *gorm.DB
	Sessions *service.SessionService
	Accounts *service.AccountService
}

type logging struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func provideLogging(ctx context.Context, cfg *config.Config) (logging, error) {
	logger, lp, err := observability.NewLogger(ctx, cfg, os.Stdout)
	if err != nil {
		return logging{}, err
	}
	slog.SetDefault(logger)
	return logging{logger: logger, provider: lp}, nil
}

func provideLogger(l logging) *slog.Logger { return l.logger }

func provideRuntime(ctx context.Context, cfg *config.Config, l logging) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, l.logger, l.provider)
}

func provideDatabase(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := repository.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repository.Migrate(db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

// provideRedis returns a nil client when no component is configured to use Redis.
func provideRedis(cfg *config.Config) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" || (cfg.SessionStore != "redis" && cfg.RateLimitBackend != "redis") {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }, nil
}

func provideMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, func(), error) {
	if cfg.SessionStore != "mongo" {
		return nil, func() {}, nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return client, cleanup, nil
}

func provideSessionStore(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient, mc *mongo.Client) (repository.SessionStore, error) {
	switch cfg.SessionStore {
	case "memory":
		return repository.NewInMemorySessionStore(), nil
	case "redis":
		return repository.NewRedisSessionStore(rdb, "admingate"), nil
	case "mongo":
		store := repository.NewMongoSessionStore(mc.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure session indexes: %w", err)
		}
		return store, nil
	default:
		return repository.NewGormSessionStore(db), nil
	}
}

func provideCounterStore(cfg *config.Config, rdb redis.UniversalClient) service.CounterStore {
	if cfg.RateLimitBackend == "redis" && rdb != nil {
		return service.NewRedisCounterStore(rdb, "rate_limit")
	}
	return service.NewInMemoryCounterStore()
}

func provideTokenCodec(cfg *config.Config) (*security.TokenCodec, error) {
	key, err := security.DeriveSessionKey(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	return security.NewTokenCodec(key, cfg.AcceptLegacyTokens)
}

func provideVerifier(cfg *config.Config) identity.Verifier {
	return identity.NewJWTVerifier(cfg.IDPIssuer, cfg.IDPAudience, cfg.IDPSigningSecret)
}

func provideIdPAdmin(ctx context.Context, cfg *config.Config) identity.Admin {
	if cfg.IDPAdminURL == "" {
		return identity.NoopAdmin{}
	}
	return identity.NewAdminClient(ctx, identity.AdminClientConfig{
		BaseURL:      cfg.IDPAdminURL,
		TokenURL:     cfg.IDPTokenURL,
		ClientID:     cfg.IDPClientID,
		ClientSecret: cfg.IDPClientSecret,
	})
}

func provideAdmissionService(cfg *config.Config, verifier identity.Verifier, accounts repository.AccountRepository, sessions repository.SessionStore, codec *security.TokenCodec, activity *service.ActivityLogger, logger *slog.Logger) *service.AdmissionService {
	return service.NewAdmissionService(verifier, accounts, sessions, codec, activity, service.AdmissionPolicy{
		MaxSessions: cfg.SessionMaxPerUser,
		StaleAfter:  cfg.SessionStaleAfter,
		TokenTTL:    cfg.SessionTTL,
	}, logger)
}

func provideSessionService(cfg *config.Config, sessions repository.SessionStore, codec *security.TokenCodec, activity *service.ActivityLogger, logger *slog.Logger) *service.SessionService {
	return service.NewSessionService(sessions, codec, activity, cfg.ElevatedRole, cfg.SessionStaleAfter, logger)
}

func provideRequestGuard(cfg *config.Config, counters service.CounterStore, kill *service.KillSwitch, logger *slog.Logger) *service.RequestGuard {
	return service.NewRequestGuard(counters, service.QuotaPolicy{
		Window: cfg.RateLimitWindow,
		Limits: map[domain.Verb]int{
			domain.VerbRead:   cfg.RateLimitRead,
			domain.VerbWrite:  cfg.RateLimitWrite,
			domain.VerbDelete: cfg.RateLimitDelete,
		},
		KillMargin: cfg.KillSwitchMargin,
	}, service.FailureMode(cfg.RateLimitFailureMode), kill, cfg.RateLimitBackend, logger)
}

func provideAuthHandler(cfg *config.Config, admission *service.AdmissionService, sessions *service.SessionService) *handler.AuthHandler {
	return handler.NewAuthHandler(admission, sessions, cfg.CookieSecure, cfg.LoginPath)
}

func provideReadiness(db *gorm.DB, rdb redis.UniversalClient, mc *mongo.Client) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if rdb != nil {
		checkers = append(checkers, health.NewRedisChecker(rdb))
	}
	if mc != nil {
		checkers = append(checkers, health.NewMongoChecker(mc))
	}
	return health.NewProbeRunner(2*time.Second, checkers...)
}

func provideRouter(
	cfg *config.Config,
	auth *handler.AuthHandler,
	sessions *handler.SessionHandler,
	activity *handler.ActivityHandler,
	posts *handler.PostHandler,
	authenticator *service.SessionService,
	counters service.CounterStore,
	readiness *health.ProbeRunner,
) http.Handler {
	loginLimiter := middleware.NewRateLimiter(counters, cfg.LoginRateLimitRPM, time.Minute,
		service.FailureMode(cfg.RateLimitFailureMode), "login")
	return router.NewRouter(router.Dependencies{
		AuthHandler:     auth,
		SessionHandler:  sessions,
		ActivityHandler: activity,
		PostHandler:     posts,
		Authenticator:   authenticator,
		ElevatedRole:    cfg.ElevatedRole,
		LoginLimiter:    loginLimiter.Middleware(),
		Readiness:       readiness,
		EnableOTelHTTP:  cfg.OTELTracingEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

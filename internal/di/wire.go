//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/youthorg/admingate/internal/app"
	"github.com/youthorg/admingate/internal/config"
	"github.com/youthorg/admingate/internal/http/handler"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/service"
)

var storageSet = wire.NewSet(
	provideDatabase,
	provideRedis,
	provideMongo,
	provideSessionStore,
	repository.NewAccountRepository,
	wire.Bind(new(repository.AccountRepository), new(*repository.GormAccountRepository)),
	repository.NewActivityRepository,
	wire.Bind(new(repository.ActivityRepository), new(*repository.GormActivityRepository)),
)

var serviceSet = wire.NewSet(
	provideTokenCodec,
	provideIdPAdmin,
	service.NewActivityLogger,
	service.NewKillSwitch,
	service.NewAccountService,
	provideSessionService,
)

func InitializeServer(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	wire.Build(
		provideLogging,
		provideLogger,
		provideRuntime,
		storageSet,
		serviceSet,
		repository.NewPostRepository,
		wire.Bind(new(repository.PostRepository), new(*repository.GormPostRepository)),
		provideCounterStore,
		provideVerifier,
		provideAdmissionService,
		provideRequestGuard,
		wire.Bind(new(handler.RequestGuard), new(*service.RequestGuard)),
		service.NewPostService,
		provideAuthHandler,
		handler.NewSessionHandler,
		handler.NewActivityHandler,
		handler.NewPostHandler,
		provideReadiness,
		provideRouter,
		provideHTTPServer,
		wire.Bind(new(app.StaleSweeper), new(*service.SessionService)),
		app.New,
		wire.Struct(new(Server), "*"),
	)
	return nil, nil, nil
}

func InitializeMaintenance(ctx context.Context, cfg *config.Config) (*Maintenance, func(), error) {
	wire.Build(
		provideLogging,
		provideLogger,
		storageSet,
		serviceSet,
		wire.Struct(new(Maintenance), "*"),
	)
	return nil, nil, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youthorg/admingate/internal/config"
	"github.com/youthorg/admingate/internal/health"
	"github.com/youthorg/admingate/internal/observability"
)

// StaleSweeper is satisfied by service.SessionService.
type StaleSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner
	Sweeper       StaleSweeper

	ShutdownTimeout time.Duration
	SweepInterval   time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner, sweeper StaleSweeper) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		Readiness:       readiness,
		Sweeper:         sweeper,
		ShutdownTimeout: cfg.ShutdownTimeout,
		SweepInterval:   cfg.SessionSweepEvery,
	}
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.Sweeper != nil && a.SweepInterval > 0 {
		g.Go(func() error {
			a.sweepLoop(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown()
	})
	return g.Wait()
}

func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		removed, err := a.Sweeper.SweepStale(ctx)
		if err != nil && ctx.Err() == nil {
			a.Logger.Warn("stale session sweep incomplete", "removed", removed, "error", err)
			continue
		}
		if removed > 0 {
			a.Logger.Info("stale sessions swept", "removed", removed)
		}
	}
}

func (a *App) Shutdown() error {
	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("shutting down")
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	return errors.Join(errs...)
}

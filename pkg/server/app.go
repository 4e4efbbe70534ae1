package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"MarketLens/internal/usecase"
	pkgch "MarketLens/pkg/clickhouse"
	"MarketLens/pkg/config"
	xhttp "MarketLens/pkg/http"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	cacheStore *usecase.CacheStore
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client

	httpServer *xhttp.Server
	sweeper    *cron.Cron
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	cacheStore *usecase.CacheStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		handler:    handler,
		cacheStore: cacheStore,
		producer:   producer,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.logger),
	)

	if err := a.startSweeper(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startSweeper schedules periodic cache retention sweeps.
func (a *App) startSweeper(ctx context.Context) error {
	a.sweeper = cron.New()
	_, err := a.sweeper.AddFunc(a.cfg.Cache.SweepSchedule, func() {
		cutoff := time.Now().Add(-a.cfg.Cache.Retention)
		removed := a.cacheStore.Sweep(ctx, cutoff)
		a.logger.Info("cache sweep",
			applogger.Int("removed", removed),
			applogger.String("cutoff", cutoff.UTC().Format(time.RFC3339)),
		)
	})
	if err != nil {
		return err
	}
	a.sweeper.Start()
	a.logger.Info("cache sweeper started", applogger.String("schedule", a.cfg.Cache.SweepSchedule))
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.sweeper != nil {
		<-a.sweeper.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.cacheStore.Close(); err != nil {
		a.logger.Warn("cache store close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}

// Package server ties the application's long-running components into a
// single lifecycle.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/service/fanout"
	"QuotePulse/internal/usecase"
	pkgch "QuotePulse/pkg/clickhouse"
	"QuotePulse/pkg/config"
	xhttp "QuotePulse/pkg/http"
	applogger "QuotePulse/pkg/logger"
)

// App owns the fan-out manager, refresh scheduler and HTTP server and
// runs them until a shutdown signal arrives.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	fanout    *fanout.Manager
	refresher *usecase.Refresher
	bus       drepo.Bus
	history   drepo.HistorySink
	chClient  *pkgch.Client
	server    *xhttp.Server
}

// New assembles the application. history and chClient may be nil when
// the corresponding backends are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	fan *fanout.Manager,
	refresher *usecase.Refresher,
	bus drepo.Bus,
	history drepo.HistorySink,
	chClient *pkgch.Client,
	server *xhttp.Server,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		fanout:    fan,
		refresher: refresher,
		bus:       bus,
		history:   history,
		chClient:  chClient,
		server:    server,
	}
}

// Run starts every component and blocks until interrupted, then shuts
// down in reverse dependency order.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.fanout.Start(ctx)
	a.refresher.Start(ctx)

	if err := a.server.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}

	a.log.Info("quotepulse running",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("history_backend", a.cfg.History.Backend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	// Stop producing first so no new publishes race the teardown.
	a.refresher.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.bus.Close(); err != nil {
		a.log.Warn("bus close error", applogger.Error(err))
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("history sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

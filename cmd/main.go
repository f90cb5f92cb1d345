package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"edinsights/internal/adapters/config"
	"edinsights/internal/adapters/errors/noop"
	"edinsights/internal/adapters/errors/sentry"
	"edinsights/internal/bootstrap"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode (version %s)", cfg.App.Name, cfg.App.Env, bootstrap.Version)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	container, err := bootstrap.Build(cfg, log, errorTracker)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- container.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.Infof("Received signal %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			log.Errorf("Server stopped unexpectedly: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	container.Stop(ctx)

	log.Info("Shutdown complete")
}

// initErrorTracker returns a Sentry tracker when configured, otherwise the
// no-op tracker.
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled, using noop tracker")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to init Sentry, falling back to noop tracker: %v", err)
		return noop.New()
	}

	log.Infof("Error tracking enabled (env=%s)", cfg.ErrorTracking.Environment)
	return tracker
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prepmaster/backend/internal/config"
	"prepmaster/backend/internal/platform/logging"
	"prepmaster/backend/internal/server"
	telemetryotel "prepmaster/backend/internal/telemetry/otel"
)

const (
	serviceName     = "prepmaster-backend"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure, log)
	if err != nil {
		log.WithError(err).Fatal("telemetry")
	}
	providers.SetGlobal()

	a, err := build(ctx, cfg, log, providers.LoggerProvider)
	if err != nil {
		log.WithError(err).Fatal("startup")
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(server.NewRouter(a.deps), serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "env": cfg.Env, "storage": a.storage}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("telemetry shutdown")
	}
	log.Info("HTTP server stopped")
}

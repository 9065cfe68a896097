// Command server is the entry point for the Atelier API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier/internal/bootstrap"
	"atelier/internal/config"
	"atelier/internal/middleware"
	"atelier/internal/observability"
	"atelier/internal/server"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "atelier-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		ApplySchema:    true,
		SeedCategories: !cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		middleware.Logger.Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(sctx)
		if terr := shutdownTracing(sctx); terr != nil {
			middleware.Logger.Warn("tracing shutdown failed", slog.String("error", terr.Error()))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		middleware.Logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

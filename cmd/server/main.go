package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aigoflow/news-classifier/internal/app"
	"github.com/aigoflow/news-classifier/internal/config"
	"github.com/aigoflow/news-classifier/internal/logging"
	"github.com/aigoflow/news-classifier/internal/services"
	"github.com/aigoflow/news-classifier/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Default JSON logging until the configured level is known
	logging.Init("json", slog.LevelInfo)

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Model and audit log must be ready before any request is accepted
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	a.Event(ctx, "info", "startup", "Server starting", map[string]interface{}{
		"model_name": cfg.ModelName,
		"http_addr":  cfg.HTTPAddr,
		"nats_url":   cfg.NatsURL,
	})

	var wg sync.WaitGroup
	fatal := make(chan error, 2)

	httpServer := server.NewServer(cfg.HTTPAddr, a)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.Start(ctx); err != nil {
			a.Event(ctx, "error", "http.failed", "HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			fatal <- err
		}
	}()

	var natsService *services.NATSService
	if cfg.NatsURL != "" {
		natsService, err = services.NewNATSService(cfg, a.Predict, a.Stats)
		if err != nil {
			slog.Error("Failed to create NATS service", "error", err)
			_ = httpServer.Shutdown(context.Background())
			a.Close()
			os.Exit(1)
		}

		healthService := services.NewHealthService(natsService.GetConnection(), cfg, a.Labels(), a.Stats)
		if err := healthService.Start(ctx); err != nil {
			slog.Error("Health service failed", "error", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := natsService.Start(ctx); err != nil {
				a.Event(ctx, "error", "nats.failed", "NATS service failed", map[string]interface{}{
					"error": err.Error(),
				})
				fatal <- err
			}
		}()
	}

	a.Event(ctx, "info", "server.ready", "Server ready to accept requests", map[string]interface{}{
		"http_addr":  cfg.HTTPAddr,
		"model_name": cfg.ModelName,
	})

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case s := <-sig:
		slog.Info("Shutting down server", "signal", s.String())
	case err := <-fatal:
		slog.Error("Service failed, shutting down", "error", err)
		exitCode = 1
	}

	// Drain in-flight requests before the audit log is closed
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP drain incomplete", "error", err)
	}
	cancel()
	wg.Wait()
	if natsService != nil {
		natsService.Close()
	}

	if err := a.Close(); err != nil {
		slog.Error("Failed to close audit log", "error", err)
		exitCode = 1
	}
	slog.Info("Shutdown complete")
	os.Exit(exitCode)
}

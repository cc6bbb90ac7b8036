package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agenthands/ontograph/internal/config"
	"github.com/agenthands/ontograph/internal/core"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
	"github.com/agenthands/ontograph/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := core.Open(ctx, cfg, lg, metrics.New())
	if err != nil {
		lg.Fatal("Failed to open graph engine", "error", err)
	}
	defer func() { _ = e.Close(context.Background()) }()

	if err := e.BuildIndices(ctx); err != nil {
		lg.Warn("Failed to build indices", "error", err)
	}

	srv := server.NewServer(e, cfg.DocStore.ManifestTable)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Starting server", "port", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		lg.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			lg.Error("Server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Error("Shutdown failed", "error", err)
	}
}

// Command server starts the Muleguard Fraud Intelligence API.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-port  HTTP port to listen on (default: 8080)
//
// Environment:
//
//	PORT          overrides -port (PaaS platforms inject this)
//	DATABASE_URL  PostgreSQL connection string for the suspicion memory;
//	              when unset the memory lives in-process and resets on restart
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"muleguard/intel-api/internal/api"
	"muleguard/intel-api/internal/engine"
	"muleguard/intel-api/internal/store"
	"muleguard/intel-api/internal/webhook"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	flag.Parse()

	// Railway (and most PaaS platforms) inject PORT as an env var.
	// It takes precedence over the -port flag.
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Suspicion memory backend ──────────────────────────────────────────────
	history, cleanup, err := openHistory(context.Background())
	if err != nil {
		slog.Error("opening suspicion memory", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// ── Wire dependencies ─────────────────────────────────────────────────────
	eng := engine.New(history, slog.Default())
	registry := webhook.NewRegistry()
	notifier := webhook.New(registry)
	handler := api.NewHandler(eng, history, registry, notifier)
	router := api.NewRouter(handler)

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "port", *port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// openHistory picks the suspicion memory backend from the environment:
// PostgreSQL when DATABASE_URL is set, in-process otherwise.
func openHistory(ctx context.Context) (store.History, func(), error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		slog.Info("suspicion memory: in-process (set DATABASE_URL to persist across restarts)")
		return store.NewMemory(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pg, err := store.Connect(connectCtx, connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pg.InitSchema(connectCtx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("initialising schema: %w", err)
	}
	slog.Info("suspicion memory: postgres")
	return pg, pg.Close, nil
}

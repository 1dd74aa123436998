// Package main provides echoagent, a small AG-UI backend for trying the
// bridge without a model. It streams the typed AG-UI protocol over SSE.
//
// Configuration is via environment variables:
//
//	ECHOAGENT_PORT        - Server port (default: 9000)
//	ECHOAGENT_CHUNK_DELAY - Pause between streamed words (default: 30ms)
//	ECHOAGENT_LOG_LEVEL   - debug, info, warn, error (default: info)
//
// Usage:
//
//	go run ./cmd/echoagent
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load() // Load .env file if present

	port := getEnvOrDefault("ECHOAGENT_PORT", "9000")
	delay := getEnvDurationOrDefault("ECHOAGENT_CHUNK_DELAY", 30*time.Millisecond)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelOf(getEnvOrDefault("ECHOAGENT_LOG_LEVEL", "info")),
	})))

	agent := newEchoAgent(func(lo, hi int) int { return lo + rand.IntN(hi-lo+1) }, delay)

	mux := http.NewServeMux()
	mux.Handle("/", NewAgentHandler(agent))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("echo agent starting", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func levelOf(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

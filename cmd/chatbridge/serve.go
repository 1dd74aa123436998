package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/bridge"
)

// runServe serves one widget session over HTTP.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      a.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // turns may stream for a long time
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.drainEvents(ctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("bridge starting",
			"listen", cfg.Listen,
			"backend", cfg.BackendURL,
			"thread_id", a.session.ThreadID(),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("bridge stopped")
	return nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/chat", corsMiddleware(a.turnSession()))
	mux.Handle("/api/reset", corsMiddleware(http.HandlerFunc(a.resetHandler)))
	mux.HandleFunc("/api/config", a.configHandler)
	mux.HandleFunc("/api/thread", a.threadHandler)
	mux.HandleFunc("/health", healthHandler)
	return mux
}

// turnSession wraps the session so every HTTP turn gets the configured
// timeout.
func (a *app) turnSession() http.Handler {
	inner := bridge.NewHTTPHandler(a.session)
	if a.cfg.Timeout <= 0 {
		return inner
	}
	return http.TimeoutHandler(inner, a.cfg.Timeout, `{"error":"turn timed out"}`)
}

// configHandler tells the widget what to show before the first turn.
func (a *app) configHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"introMessage": a.cfg.Intro,
		"threadId":     a.session.ThreadID(),
	})
}

// threadHandler returns the transcript the bridge holds for the widget.
func (a *app) threadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.session.Thread())
}

func (a *app) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.session.Reset(r.Context()); err != nil {
		a.logger.Error("reset failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ai.ErrorResult(err))
		return
	}
	a.logger.Info("thread reset", "thread_id", a.session.ThreadID())
	healthHandler(w, r)
}

// corsMiddleware adds CORS headers for cross-origin widget requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Package main provides chatbridge, a chat widget front end for AG-UI
// agent backends.
//
// It runs either as an interactive terminal chat or as an HTTP bridge that a
// browser chat widget posts its turns to. Both modes reconstruct the
// conversation from the backend's AG-UI event stream.
//
// Configuration is via environment variables (or a YAML file, or flags):
//
//	CHATBRIDGE_BACKEND_URL      - AG-UI endpoint (default: http://localhost:9000/)
//	CHATBRIDGE_LISTEN           - serve mode address (default: :8080)
//	CHATBRIDGE_LOG_LEVEL        - debug, info, warn, error (default: info)
//	CHATBRIDGE_DUPLICATE_WINDOW - double submission window (default: 5s)
//	CHATBRIDGE_TOOL_SUMMARIES   - show tool call summaries (default: false)
//	CHATBRIDGE_RETRY_ATTEMPTS   - connection attempts per turn (default: 3)
//	CHATBRIDGE_TIMEOUT          - per-turn timeout (default: 2m)
//	CHATBRIDGE_INTRO            - intro message (default: Hello, how can I help you?)
//	CHATBRIDGE_CONFIG           - YAML config file
//
// Usage:
//
//	go run ./cmd/chatbridge                 # terminal chat
//	go run ./cmd/chatbridge serve           # HTTP bridge on :8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/spetersoncode/chatbridge/bridge"
	"github.com/spetersoncode/chatbridge/client"
	"github.com/spetersoncode/chatbridge/event"
	"github.com/spetersoncode/chatbridge/retry"
)

func main() {
	app := &cli.Command{
		Name:   "chatbridge",
		Usage:  "Chat with an AG-UI agent from the terminal or bridge it to a web widget",
		Flags:  defineFlags(),
		Action: runChat,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the widget bridge over HTTP",
				Action: runServe,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "AG-UI backend URL",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Listen address for serve mode",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.BoolFlag{
			Name:  "tool-summaries",
			Usage: "Show a summary line for every tool call result",
		},
	}
}

// loadConfig layers command-line flags over LoadConfig.
func loadConfig(cmd *cli.Command) (*Config, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("backend") {
		cfg.BackendURL = cmd.String("backend")
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("tool-summaries") {
		cfg.ToolSummaries = cmd.Bool("tool-summaries")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	return logger
}

// app bundles what both modes need.
type app struct {
	cfg       *Config
	logger    *slog.Logger
	session   *bridge.Session
	engine    chan event.Event
	transport chan client.Event
}

func newApp(cfg *Config, logger *slog.Logger) (*app, error) {
	engine := event.NewChannel()
	transport := make(chan client.Event, 100)

	retryCfg := retry.DefaultConfig().WithAttempts(cfg.RetryAttempts)
	c, err := client.New(client.Config{
		URL:    cfg.BackendURL,
		Retry:  &retryCfg,
		Events: transport,
	})
	if err != nil {
		return nil, err
	}

	session := bridge.NewSession(c,
		bridge.WithLogger(logger),
		bridge.WithDuplicateWindow(cfg.DuplicateWindow),
		bridge.WithToolSummaries(cfg.ToolSummaries),
		bridge.WithEvents(engine),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		session:   session,
		engine:    engine,
		transport: transport,
	}, nil
}

// handle runs one turn bounded by the configured timeout.
func (a *app) handle(ctx context.Context, body bridge.Body, signals bridge.Signals) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	a.session.Handle(ctx, body, signals)
}

// drainEvents logs engine and transport notifications until ctx is done.
func (a *app) drainEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.engine:
			attrs := []any{"type", e.Type}
			if e.Kind != "" {
				attrs = append(attrs, "kind", e.Kind)
			}
			if e.MessageID != "" {
				attrs = append(attrs, "message_id", e.MessageID)
			}
			if e.ToolCallID != "" {
				attrs = append(attrs, "tool_call_id", e.ToolCallID)
			}
			if e.Message != "" {
				attrs = append(attrs, "detail", e.Message)
			}
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
			}
			a.logger.Debug("engine event", attrs...)
		case e := <-a.transport:
			attrs := []any{"type", e.Type, "thread_id", e.ThreadID, "run_id", e.RunID}
			switch e.Type {
			case client.EventRequestComplete:
				attrs = append(attrs, "status", e.StatusCode, "duration_ms", e.Duration.Milliseconds())
			case client.EventRequestError:
				attrs = append(attrs, "error", e.Error)
			case client.EventRetry:
				attrs = append(attrs, "retry", e.RetryEvent.Type, "attempt", e.RetryEvent.Attempt)
				if e.RetryEvent.Failure != retry.FailureNone {
					attrs = append(attrs, "failure", e.RetryEvent.Failure)
				}
				if e.RetryEvent.Delay > 0 {
					attrs = append(attrs, "delay", e.RetryEvent.Delay)
				}
			}
			a.logger.Debug("transport event", attrs...)
		}
	}
}

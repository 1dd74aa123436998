package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/bridge"
)

// runChat is the interactive terminal widget.
func runChat(ctx context.Context, cmd *cli.Command) error {
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
	go a.drainEvents(ctx)

	initColors()
	return a.chat(ctx, os.Stdin, os.Stdout)
}

// termSignals keeps the one reply of a turn.
type termSignals struct {
	result ai.Result
	called bool
}

func (s *termSignals) OnResponse(r ai.Result) {
	s.result = r
	s.called = true
}

// chat reads user lines from in until EOF, /quit or cancellation. Like a
// browser widget it resends its whole visible history every turn.
func (a *app) chat(ctx context.Context, in io.Reader, out io.Writer) error {
	history := []bridge.WidgetMessage{{Role: bridge.WidgetRoleAI, Text: a.cfg.Intro}}

	fmt.Fprintln(out, styled(dimStyle, fmt.Sprintf("backend %s  thread %s", a.cfg.BackendURL, a.session.ThreadID())))
	fmt.Fprintln(out, styled(dimStyle, "/reset starts a new thread, /quit exits"))
	fmt.Fprintln(out, styled(assistantStyle, a.cfg.Intro))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, styled(userStyle, "> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := a.session.Reset(ctx); err != nil {
				fmt.Fprintln(out, styled(errorStyle, err.Error()))
				continue
			}
			history = history[:1]
			fmt.Fprintln(out, styled(dimStyle, "new thread "+a.session.ThreadID()))
			continue
		}

		history = append(history, bridge.WidgetMessage{Role: bridge.WidgetRoleUser, Text: line})

		signals := &termSignals{}
		a.handle(ctx, bridge.Body{Messages: history}, signals)
		if !signals.called {
			continue
		}
		if signals.result.IsError() {
			fmt.Fprintln(out, styled(errorStyle, signals.result.Error))
			continue
		}
		fmt.Fprintln(out, styled(assistantStyle, signals.result.Text))
		history = append(history, bridge.WidgetMessage{Role: bridge.WidgetRoleAI, Text: signals.result.Text})
	}
}

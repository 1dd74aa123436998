package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/agui"
	"github.com/spetersoncode/chatbridge/retry"
)

// ErrMissingURL is returned when no backend URL is configured.
var ErrMissingURL = errors.New("backend URL is required")

// Config holds configuration for creating a Client.
type Config struct {
	// URL is the AG-UI backend endpoint runs are POSTed to.
	URL string

	// HTTPClient is used for requests. If nil, a client without a global
	// timeout is used so long streams are not cut off.
	HTTPClient *http.Client

	// Headers are added to every request.
	Headers map[string]string

	// Retry configures retry behavior for connection failures.
	// If nil, uses retry.DefaultConfig().
	Retry *retry.Config

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// Client sends AG-UI runs to one backend.
type Client struct {
	url         string
	http        *http.Client
	headers     map[string]string
	retryConfig retry.Config
	events      chan<- Event
}

// New creates a Client. It fails if the URL is missing or not absolute.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", cfg.URL)
	}

	retryConfig := retry.DefaultConfig()
	if cfg.Retry != nil {
		retryConfig = *cfg.Retry
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		url:         cfg.URL,
		http:        httpClient,
		headers:     cfg.Headers,
		retryConfig: retryConfig,
		events:      cfg.Events,
	}, nil
}

// URL returns the backend endpoint.
func (c *Client) URL() string { return c.url }

// Send POSTs input as JSON and returns the backend's response, whatever its
// status. The caller must close the response body.
func (c *Client) Send(ctx context.Context, input agui.RunAgentInput) (*http.Response, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode run input: %w", err)
	}

	start := time.Now()
	emit(c.events, Event{
		Type:     EventRequestStart,
		ThreadID: input.ThreadID,
		RunID:    input.RunID,
	})

	// Create retry events channel if client events are enabled
	var retryEvents chan retry.Event
	done := make(chan struct{})
	if c.events != nil {
		retryEvents = make(chan retry.Event, 10)
		go c.forwardRetryEvents(retryEvents, input, done)
	} else {
		close(done)
	}

	resp, err := retry.DoWithEvents(ctx, c.retryConfig, retryEvents, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		return c.http.Do(req)
	})

	if retryEvents != nil {
		close(retryEvents)
	}
	<-done

	if err != nil {
		emit(c.events, Event{
			Type:     EventRequestError,
			ThreadID: input.ThreadID,
			RunID:    input.RunID,
			Duration: time.Since(start),
			Error:    err,
		})
		return nil, err
	}

	emit(c.events, Event{
		Type:       EventRequestComplete,
		ThreadID:   input.ThreadID,
		RunID:      input.RunID,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	})
	return resp, nil
}

// Run sends input and lets d ingest the response. sink receives exactly one
// result: the reconstructed text, the backend's error, or the connection
// failure. A cancelled ctx before any response yields the no-content text.
func (c *Client) Run(ctx context.Context, d *agui.Dispatcher, input agui.RunAgentInput, sink ai.Sink) {
	once := ai.NewOnceSink(sink)

	resp, err := c.Send(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			once.OnResponse(ai.TextResult(ai.NoContentText))
			return
		}
		once.OnResponse(ai.ErrorResult(&ai.Error{Kind: ai.KindTransport, Msg: "backend unreachable", Cause: err}))
		return
	}
	defer resp.Body.Close()

	d.Handle(ctx, agui.Response{StatusCode: resp.StatusCode, Body: resp.Body}, once)

	if !once.Delivered() {
		once.OnResponse(ai.TextResult(ai.NoContentText))
	}
}

// forwardRetryEvents reads from a retry events channel and forwards events
// to the client's event channel as EventRetry events.
func (c *Client) forwardRetryEvents(retryEvents <-chan retry.Event, input agui.RunAgentInput, done chan<- struct{}) {
	defer close(done)
	for re := range retryEvents {
		reCopy := re
		emit(c.events, Event{
			Type:       EventRetry,
			ThreadID:   input.ThreadID,
			RunID:      input.RunID,
			RetryEvent: &reCopy,
		})
	}
}

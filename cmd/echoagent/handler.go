package main

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/encoding/sse"

	"github.com/spetersoncode/chatbridge/agui"
)

// AgentHandler serves the echo agent over AG-UI SSE.
type AgentHandler struct {
	agent *echoAgent
	sse   *sse.SSEWriter
}

// NewAgentHandler creates a handler for a.
func NewAgentHandler(a *echoAgent) *AgentHandler {
	return &AgentHandler{agent: a, sse: sse.NewSSEWriter()}
}

// ServeHTTP handles POST requests to run the agent and stream events via SSE.
func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		slog.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input agui.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if input.ThreadID == "" {
		input.ThreadID = events.GenerateThreadID()
	}
	if input.RunID == "" {
		input.RunID = events.GenerateRunID()
	}

	log := slog.With(
		"run_id", input.RunID,
		"thread_id", input.ThreadID,
	)

	if prior, err := agui.DecodeState[sessionState](&input); err != nil {
		log.Warn("undecodable state", "error", err)
	} else if prior.State != "" {
		log.Debug("prior state", "state", prior.State)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	bufWriter := bufio.NewWriter(w)

	var steps []step
	if err := input.Validate(); err != nil {
		log.Warn("invalid input", "error", err)
		steps = []step{{event: events.NewRunErrorEvent("No user message found", events.WithRunID(input.RunID))}}
	} else {
		last, _ := input.LastUserMessage()
		log.Info("request started", "message_count", len(input.Messages))
		steps = h.agent.reply(input.ThreadID, input.RunID, last.Content)
	}

	var sent int
	for _, s := range steps {
		if s.pause > 0 {
			select {
			case <-ctx.Done():
				log.Info("client went away", "events_sent", sent)
				return
			case <-time.After(s.pause):
			}
		}
		if err := h.sse.WriteEvent(ctx, bufWriter, s.event); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", s.event.Type())
			return
		}
		if err := bufWriter.Flush(); err != nil {
			log.Error("failed to flush SSE event", "error", err)
			return
		}
		flusher.Flush()
		sent++
	}

	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", sent,
	)
}

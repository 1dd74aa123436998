package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ai "github.com/spetersoncode/chatbridge"
)

// maxBodyBytes bounds the widget request body.
const maxBodyBytes = 1 << 20

// HTTPHandler serves a widget that posts its connect body as JSON and
// expects {"text": ...} or {"error": ...} back.
type HTTPHandler struct {
	handler Handler
	logger  *slog.Logger
}

// NewHTTPHandler creates an HTTPHandler for session.
func NewHTTPHandler(session *Session) *HTTPHandler {
	return &HTTPHandler{handler: session.Handle, logger: session.logger}
}

// ServeHTTP handles one widget turn.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body Body
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		writeResult(w, http.StatusBadRequest, ai.Result{Error: "Invalid request body: " + err.Error()})
		return
	}

	sink := &resultSink{}
	h.handler(r.Context(), body, sink)
	writeResult(w, http.StatusOK, sink.result)
}

// resultSink keeps the single result of a turn.
type resultSink struct {
	result ai.Result
}

func (s *resultSink) OnResponse(r ai.Result) { s.result = r }

func writeResult(w http.ResponseWriter, status int, r ai.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r)
}

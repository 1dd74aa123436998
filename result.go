package chatbridge

import "sync"

// NoContentText is the visible text emitted when a run produced no text.
const NoContentText = "No response content received."

// Result is the single outcome delivered to the widget for one turn.
// Exactly one of Text or Error is set.
type Result struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// IsError reports whether the result carries an error.
func (r Result) IsError() bool {
	return r.Error != ""
}

// TextResult creates a successful result.
func TextResult(text string) Result {
	return Result{Text: text}
}

// ErrorResult creates an error-shaped result from err.
func ErrorResult(err error) Result {
	if err == nil {
		return Result{Error: "unknown error"}
	}
	return Result{Error: err.Error()}
}

// Sink receives the turn's result. The engine calls OnResponse exactly once
// per turn.
type Sink interface {
	OnResponse(Result)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Result)

// OnResponse calls f(r).
func (f SinkFunc) OnResponse(r Result) { f(r) }

// OnceSink forwards only the first result to the wrapped sink.
type OnceSink struct {
	mu   sync.Mutex
	sink Sink
	done bool
}

// NewOnceSink wraps s so that at most one result reaches it.
func NewOnceSink(s Sink) *OnceSink {
	return &OnceSink{sink: s}
}

// OnResponse forwards r if no result has been delivered yet.
func (o *OnceSink) OnResponse(r Result) {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	o.mu.Unlock()
	if o.sink != nil {
		o.sink.OnResponse(r)
	}
}

// Delivered reports whether a result was forwarded.
func (o *OnceSink) Delivered() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

package client

import (
	"time"

	"github.com/spetersoncode/chatbridge/retry"
)

// EventType identifies the kind of event occurring during client operations.
type EventType string

const (
	// EventRequestStart fires before a run request is sent.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires when the backend answered with any status.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when no response could be obtained.
	EventRequestError EventType = "request_error"

	// EventRetry fires when a retry event occurs (forwarded from retry package).
	EventRetry EventType = "retry"
)

// Event represents an observable occurrence during client operations.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	ThreadID string
	RunID    string

	// StatusCode is the backend's HTTP status for EventRequestComplete.
	StatusCode int

	// Duration is the elapsed time until headers arrived.
	Duration time.Duration

	// Error contains the error for EventRequestError.
	Error error

	// RetryEvent contains the underlying retry event for EventRetry.
	RetryEvent *retry.Event

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}

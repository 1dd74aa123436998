package retry

import "time"

// EventType identifies one step of reaching the backend.
type EventType string

const (
	// EventAttemptStart fires before each connection attempt.
	EventAttemptStart EventType = "attempt_start"

	// EventAttemptFailed fires after an attempt that did not reach the
	// backend, with the classified Failure.
	EventAttemptFailed EventType = "attempt_failed"

	// EventRetrying fires before the backoff sleep.
	EventRetrying EventType = "retrying"

	// EventSuccess fires when the backend answered, whatever its status.
	EventSuccess EventType = "success"

	// EventExhausted fires when the last attempt failed transiently.
	EventExhausted EventType = "exhausted"
)

// Event reports progress of a retried call.
type Event struct {
	// Type identifies the step.
	Type EventType

	// Attempt is the attempt number, starting at 1.
	Attempt int

	// MaxAttempts is the number of attempts the Config allows.
	MaxAttempts int

	// Error is the attempt's error for EventAttemptFailed and EventExhausted.
	Error error

	// Failure classifies Error. Only transient failures are retried.
	Failure Failure

	// Delay is the backoff before the next attempt, set on EventRetrying.
	Delay time.Duration

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Retryable reports whether the failure reported by e will be retried,
// attempts permitting.
func (e Event) Retryable() bool {
	return e.Failure.Transient()
}

// emit sends an event to ch without blocking. Events are dropped when ch is
// full, and a nil ch disables them.
func emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

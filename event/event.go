// Package event provides the observer capability for the ingestion engine.
// Engine components never log; they notify an optional channel of events
// and the caller decides what to do with them.
package event

import (
	"time"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStarted fires on RUN_STARTED.
	RunStarted Type = "run_started"

	// RunFinished fires on RUN_FINISHED.
	RunFinished Type = "run_finished"

	// RunError fires on RUN_ERROR or a legacy error envelope.
	RunError Type = "run_error"
)

// Message lifecycle events
const (
	// MessageStarted fires when a message id is pre-registered.
	MessageStarted Type = "message_started"

	// MessageSealed fires on TEXT_MESSAGE_END.
	MessageSealed Type = "message_sealed"

	// MessagesSnapshot fires after the transcript is replaced wholesale.
	MessagesSnapshot Type = "messages_snapshot"

	// DuplicateRejected fires when a user message is dropped by the
	// duplicate window.
	DuplicateRejected Type = "duplicate_rejected"
)

// Tool call lifecycle events
const (
	// ToolCallStarted fires on the first TOOL_CALL_START for an id.
	ToolCallStarted Type = "tool_call_started"

	// ToolCallImplicitStart fires when TOOL_CALL_ARGS arrives for an id
	// that never started.
	ToolCallImplicitStart Type = "tool_call_implicit_start"

	// ToolCallDuplicateStart fires when TOOL_CALL_START repeats for a
	// started id. The frame is otherwise ignored.
	ToolCallDuplicateStart Type = "tool_call_duplicate_start"

	// ToolCallFinalized fires when TOOL_CALL_END attaches the call to its message.
	ToolCallFinalized Type = "tool_call_finalized"
)

// State events
const (
	// StateSnapshot fires after the side-channel state is replaced.
	StateSnapshot Type = "state_snapshot"

	// StateDelta fires after a JSON Patch is applied to the state.
	StateDelta Type = "state_delta"

	// StateRejected fires when a snapshot or patch could not be applied.
	StateRejected Type = "state_rejected"
)

// Decoder events
const (
	// FrameSkipped fires when an SSE frame cannot be parsed.
	FrameSkipped Type = "frame_skipped"

	// Ignored fires for unrecognized kinds and events missing required fields.
	Ignored Type = "event_ignored"
)

// Event represents an observable occurrence during response ingestion.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Kind is the AG-UI event kind that caused this notification, if any.
	Kind string

	// MessageID identifies the affected message.
	MessageID string

	// ToolCallID identifies the affected tool call.
	ToolCallID string

	// RunID is set on run lifecycle events.
	RunID string

	// Message contains additional context (e.g. why an event was ignored).
	Message string

	// Err contains the error for FrameSkipped, RunError and StateRejected.
	Err error

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel without blocking.
// A nil channel disables notifications.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}

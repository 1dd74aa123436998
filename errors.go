package chatbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateMessage is returned when a user message repeats stored
	// content inside the duplicate window.
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrInvalidSnapshot is returned when a snapshot replace would leave the
	// transcript with non-unique message ids.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrMessageSealed is returned when content arrives for a message that
	// already received TEXT_MESSAGE_END.
	ErrMessageSealed = errors.New("message sealed")

	// ErrNoUserMessage is returned when a turn carries no user message at all.
	ErrNoUserMessage = errors.New("no user message")
)

// ErrorKind classifies errors produced while ingesting a response.
type ErrorKind string

const (
	// KindTransport indicates a non-success HTTP status from the backend.
	KindTransport ErrorKind = "transport"

	// KindMalformedPayload indicates a non-stream body that is not valid JSON
	// or has no recognizable shape.
	KindMalformedPayload ErrorKind = "malformed_payload"

	// KindMalformedFrame indicates a single unparsable SSE line.
	// Recovered locally by skipping the frame.
	KindMalformedFrame ErrorKind = "malformed_frame"

	// KindDuplicateMessage indicates a rejected widget double submission.
	// Recovered locally.
	KindDuplicateMessage ErrorKind = "duplicate_message"

	// KindInvalidSnapshot indicates a MESSAGES_SNAPSHOT violating id uniqueness.
	KindInvalidSnapshot ErrorKind = "invalid_snapshot"

	// KindProtocolRunError indicates an explicit RUN_ERROR or legacy error event.
	KindProtocolRunError ErrorKind = "protocol_run_error"
)

// Error is a categorized error carrying the data needed to build the turn's
// visible result.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Code  string // protocol error code, if any
	Cause error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil && e.Msg == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// TransportError reports a non-success HTTP response.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[Backend error %d]: %s", e.StatusCode, e.Body)
}

// NewTransportError creates a categorized error for a non-success HTTP status.
func NewTransportError(status int, body string) *Error {
	return &Error{
		Kind:  KindTransport,
		Cause: &TransportError{StatusCode: status, Body: body},
	}
}

// NewMalformedPayloadError wraps a whole-body parse failure. The cause's
// message is surfaced verbatim.
func NewMalformedPayloadError(cause error) *Error {
	return &Error{Kind: KindMalformedPayload, Cause: cause}
}

// NewMalformedFrameError wraps a single SSE frame parse failure.
func NewMalformedFrameError(payload string, cause error) *Error {
	return &Error{
		Kind:  KindMalformedFrame,
		Msg:   fmt.Sprintf("malformed frame %q", truncate(payload, 80)),
		Cause: cause,
	}
}

// NewRunError creates an error for an explicit RUN_ERROR or legacy error event.
func NewRunError(message, code string) *Error {
	if message == "" {
		message = "unknown error"
	}
	return &Error{Kind: KindProtocolRunError, Msg: message, Code: code}
}

// NewInvalidSnapshotError reports the id that broke uniqueness.
func NewInvalidSnapshotError(id string) *Error {
	return &Error{
		Kind:  KindInvalidSnapshot,
		Msg:   fmt.Sprintf("duplicate message id %q", id),
		Cause: ErrInvalidSnapshot,
	}
}

// NewDuplicateMessageError reports a rejected user message.
func NewDuplicateMessageError(content string) *Error {
	return &Error{
		Kind:  KindDuplicateMessage,
		Msg:   fmt.Sprintf("user message %q", truncate(content, 40)),
		Cause: ErrDuplicateMessage,
	}
}

// KindOf returns the kind of the first categorized error in err's chain,
// or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Recoverable reports whether the error is absorbed locally and never
// reaches the widget.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindMalformedFrame, KindDuplicateMessage:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

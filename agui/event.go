package agui

import (
	"encoding/json"
	"fmt"

	ai "github.com/spetersoncode/chatbridge"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// Kind discriminates an Event.
type Kind string

// AG-UI typed protocol kinds.
const (
	KindRunStarted         = Kind(events.EventTypeRunStarted)
	KindRunFinished        = Kind(events.EventTypeRunFinished)
	KindRunError           = Kind(events.EventTypeRunError)
	KindStepStarted        = Kind(events.EventTypeStepStarted)
	KindStepFinished       = Kind(events.EventTypeStepFinished)
	KindTextMessageStart   = Kind(events.EventTypeTextMessageStart)
	KindTextMessageContent = Kind(events.EventTypeTextMessageContent)
	KindTextMessageEnd     = Kind(events.EventTypeTextMessageEnd)
	KindToolCallStart      = Kind(events.EventTypeToolCallStart)
	KindToolCallArgs       = Kind(events.EventTypeToolCallArgs)
	KindToolCallEnd        = Kind(events.EventTypeToolCallEnd)
	KindToolCallResult     = Kind(events.EventTypeToolCallResult)
	KindStateSnapshot      = Kind(events.EventTypeStateSnapshot)
	KindStateDelta         = Kind(events.EventTypeStateDelta)
	KindCustom             = Kind(events.EventTypeCustom)
	KindTextMessageChunk   = Kind(events.EventTypeTextMessageChunk)
	KindMessagesSnapshot   = Kind(events.EventTypeMessagesSnapshot)
	KindRaw                = Kind(events.EventTypeRaw)
)

// Legacy envelope kinds, from the `event` discriminator of
// {"event": "...", "data": {...}} frames.
const (
	KindLegacyMessage Kind = "message"
	KindLegacySystem  Kind = "system"
	KindLegacyError   Kind = "error"
)

// KindUnknown marks a frame whose discriminator is missing or unrecognized.
// Event.Type still holds the wire value.
const KindUnknown = Kind(events.EventTypeUnknown)

var knownKinds = map[Kind]bool{
	KindRunStarted: true, KindRunFinished: true, KindRunError: true,
	KindStepStarted: true, KindStepFinished: true,
	KindTextMessageStart: true, KindTextMessageContent: true, KindTextMessageEnd: true,
	KindTextMessageChunk: true,
	KindToolCallStart: true, KindToolCallArgs: true, KindToolCallEnd: true, KindToolCallResult: true,
	KindStateSnapshot: true, KindStateDelta: true, KindMessagesSnapshot: true,
	KindRaw: true, KindCustom: true,
}

// IsLegacy reports whether k is a legacy envelope kind.
func (k Kind) IsLegacy() bool {
	switch k {
	case KindLegacyMessage, KindLegacySystem, KindLegacyError:
		return true
	}
	return false
}

// Event is one decoded frame. It is a closed union: Kind selects which of the
// remaining fields are meaningful.
type Event struct {
	Kind Kind
	// Type is the raw discriminator as it appeared on the wire.
	Type string

	ThreadID string
	RunID    string

	// Text messages, tool results, chunks
	MessageID string
	Role      ai.Role
	Delta     string // text or argument fragment

	// Tool calls
	ToolCallID      string
	ToolCallName    string
	ParentMessageID string

	// Content is the tool result for TOOL_CALL_RESULT and the data text of a
	// legacy message or system envelope.
	Content string

	// Errors (RUN_ERROR and legacy error)
	Message string
	Code    string

	// State and transcript
	Snapshot json.RawMessage
	Patch    json.RawMessage
	Messages []ai.Message

	// CUSTOM and RAW
	Name     string
	Value    json.RawMessage
	Source   string
	StepName string

	// Raw is the frame as received.
	Raw json.RawMessage
}

// LegacyText returns the visible text of a legacy envelope: data.content,
// falling back to data.message. Error envelopes prefer data.message.
func (e Event) LegacyText() string {
	if e.Kind == KindLegacyError {
		return firstNonEmpty(e.Message, e.Content)
	}
	return firstNonEmpty(e.Content, e.Message)
}

func (e Event) String() string {
	switch {
	case e.MessageID != "":
		return fmt.Sprintf("%s(message=%s)", e.Type, e.MessageID)
	case e.ToolCallID != "":
		return fmt.Sprintf("%s(toolCall=%s)", e.Type, e.ToolCallID)
	}
	return e.Type
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

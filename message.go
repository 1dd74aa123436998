package chatbridge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// Valid reports whether r is one of the AG-UI message roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool, RoleDeveloper:
		return true
	}
	return false
}

// ToolCallTypeFunction is the only tool call type the AG-UI protocol defines.
const ToolCallTypeFunction = "function"

// Function names the invoked function and carries its accumulated arguments.
type Function struct {
	Name string `json:"name"`
	// Arguments is the JSON text streamed in TOOL_CALL_ARGS deltas.
	// It is not guaranteed to be valid JSON.
	Arguments string `json:"arguments"`
}

// ToolCall represents a tool invocation declared by an assistant message.
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// NewToolCall creates a function tool call.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:   id,
		Type: ToolCallTypeFunction,
		Function: Function{
			Name:      name,
			Arguments: arguments,
		},
	}
}

// Message represents a single message in a conversation thread.
// The JSON shape matches the AG-UI message wire format.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
	// ToolCalls is only populated on assistant messages.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolCallID is only populated on tool messages and references a
	// prior assistant ToolCall.ID.
	ToolCallID string `json:"toolCallId,omitempty"`
}

// Clone returns a copy of the message that shares no slices with m.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		m.ToolCalls = calls
	}
	return m
}

// Thread is one logical conversation identified by a stable id across turns.
// RunID is the most recent run, empty before the first turn.
type Thread struct {
	ThreadID string    `json:"threadId"`
	RunID    string    `json:"runId,omitempty"`
	Messages []Message `json:"messages"`
}

// GenerateMessageID creates a widget message id of the form
// "msg-<epochMillis>-<index>".
func GenerateMessageID(now time.Time, index int) string {
	return fmt.Sprintf("msg-%d-%d", now.UnixMilli(), index)
}

// GenerateRunID creates a run id of the form "run-<epochMillis>".
func GenerateRunID(now time.Time) string {
	return "run-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// GenerateThreadID creates a thread id, stable for one widget session.
func GenerateThreadID() string {
	return "thread-" + uuid.New().String()
}

// MessageTimestamp extracts the epoch milliseconds embedded in an id produced
// by GenerateMessageID. Ids of any other shape yield 0.
func MessageTimestamp(id string) int64 {
	rest, ok := strings.CutPrefix(id, "msg-")
	if !ok {
		return 0
	}
	ms, _, _ := strings.Cut(rest, "-")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

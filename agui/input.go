package agui

import (
	"encoding/json"
	"errors"
	"time"

	ai "github.com/spetersoncode/chatbridge"
)

// RunAgentInput is the AG-UI request body for running an agent. The client
// always sends empty tools, context and forwardedProps.
type RunAgentInput struct {
	ThreadID       string          `json:"threadId"`
	RunID          string          `json:"runId"`
	State          json.RawMessage `json:"state"`
	Tools          []any           `json:"tools"`
	Context        []any           `json:"context"`
	ForwardedProps map[string]any  `json:"forwardedProps"`
	Messages       []ai.Message    `json:"messages"`
}

// ErrNoMessages is returned when the input contains no messages.
var ErrNoMessages = errors.New("no messages provided")

// emptyState is sent when no state document exists yet.
var emptyState = json.RawMessage(`""`)

// NewRunAgentInput builds the body for a new run of threadID. The run id is
// derived from now. A nil state is sent as the empty string.
func NewRunAgentInput(threadID string, now time.Time, messages []ai.Message, state json.RawMessage) RunAgentInput {
	if len(state) == 0 {
		state = emptyState
	}
	if messages == nil {
		messages = []ai.Message{}
	}
	return RunAgentInput{
		ThreadID:       threadID,
		RunID:          ai.GenerateRunID(now),
		State:          state,
		Tools:          []any{},
		Context:        []any{},
		ForwardedProps: map[string]any{},
		Messages:       messages,
	}
}

// Validate returns ErrNoMessages if Messages is empty and
// chatbridge.ErrNoUserMessage if none of them is from the user.
func (r *RunAgentInput) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	if _, ok := r.LastUserMessage(); !ok {
		return ai.ErrNoUserMessage
	}
	return nil
}

// LastUserMessage returns the most recent user message.
func (r *RunAgentInput) LastUserMessage() (ai.Message, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == ai.RoleUser {
			return r.Messages[i], true
		}
	}
	return ai.Message{}, false
}

// HasState reports whether the input carries a state document other than
// the empty-string placeholder.
func (r *RunAgentInput) HasState() bool {
	s := string(r.State)
	return s != "" && s != `""` && s != "null"
}

// DecodeState decodes the input's state into a typed struct.
// Returns the zero value of T if the input carries no state.
func DecodeState[T any](input *RunAgentInput) (T, error) {
	var result T
	if !input.HasState() {
		return result, nil
	}
	if err := json.Unmarshal(input.State, &result); err != nil {
		return result, err
	}
	return result, nil
}

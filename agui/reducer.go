package agui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/event"
	"github.com/spetersoncode/chatbridge/store"

	"github.com/tidwall/gjson"
)

// Output is the user-visible effect of one event.
type Output struct {
	// MessageID groups text belonging to one message. Text from distinct
	// ids is separated when joined.
	MessageID string
	Text      string
}

// Reducer applies decoded events to a thread's MessageStore and State.
// Each call mutates the store and returns the event's visible output, if
// any. A Reducer covers one turn and is not safe for concurrent use.
type Reducer struct {
	messages *store.MessageStore
	state    *store.State
	calls    *ToolCallAccumulator
	opts     options

	threadID        string
	runID           string
	finished        bool
	roles           map[string]ai.Role
	lastAssistantID string
}

// NewReducer creates a Reducer writing to messages and state.
// A nil state gets a fresh in-memory document.
func NewReducer(messages *store.MessageStore, state *store.State, opts ...Option) *Reducer {
	if state == nil {
		state = store.NewState(nil)
	}
	return &Reducer{
		messages: messages,
		state:    state,
		calls:    NewToolCallAccumulator(),
		opts:     applyOptions(opts),
		roles:    make(map[string]ai.Role),
	}
}

// RunID returns the id recorded by the last RUN_STARTED.
func (r *Reducer) RunID() string { return r.runID }

// ThreadID returns the thread id recorded by the last RUN_STARTED.
func (r *Reducer) ThreadID() string { return r.threadID }

// Finished reports whether RUN_FINISHED has been seen for the current run.
func (r *Reducer) Finished() bool { return r.finished }

// ToolCalls returns the accumulator holding in-flight tool calls.
func (r *Reducer) ToolCalls() *ToolCallAccumulator { return r.calls }

// Reduce applies ev. The returned error is terminal for the turn: a
// *chatbridge.Error of kind KindProtocolRunError or KindInvalidSnapshot.
// Everything else is absorbed and reported to the observer.
func (r *Reducer) Reduce(ctx context.Context, ev Event) (Output, error) {
	switch ev.Kind {
	case KindRunStarted:
		r.threadID = ev.ThreadID
		r.runID = ev.RunID
		r.finished = false
		r.notify(event.Event{Type: event.RunStarted, Kind: ev.Type, RunID: ev.RunID})

	case KindRunFinished:
		r.finished = true
		r.notify(event.Event{Type: event.RunFinished, Kind: ev.Type, RunID: firstNonEmpty(ev.RunID, r.runID)})

	case KindRunError:
		err := ai.NewRunError(ev.Message, ev.Code)
		r.notify(event.Event{Type: event.RunError, Kind: ev.Type, RunID: r.runID, Err: err})
		return Output{}, err

	case KindStepStarted, KindStepFinished, KindRaw, KindCustom:
		// Recognized, no transcript effect.

	case KindTextMessageStart:
		r.startMessage(ev)

	case KindTextMessageContent:
		return r.appendContent(ev, true)

	case KindTextMessageChunk:
		if ev.MessageID == "" {
			r.ignore(ev, "missing messageId")
			return Output{}, nil
		}
		if _, ok := r.roles[ev.MessageID]; !ok {
			r.startMessage(ev)
		}
		return r.appendContent(ev, false)

	case KindTextMessageEnd:
		if ev.MessageID == "" {
			r.ignore(ev, "missing messageId")
			return Output{}, nil
		}
		r.messages.Seal(ev.MessageID)
		r.notify(event.Event{Type: event.MessageSealed, Kind: ev.Type, MessageID: ev.MessageID})

	case KindToolCallStart:
		if ev.ToolCallID == "" {
			r.ignore(ev, "missing toolCallId")
			return Output{}, nil
		}
		if !r.calls.Start(ev.ToolCallID, ev.ToolCallName, ev.ParentMessageID) {
			r.notify(event.Event{Type: event.ToolCallDuplicateStart, Kind: ev.Type, ToolCallID: ev.ToolCallID})
			return Output{}, nil
		}
		r.notify(event.Event{Type: event.ToolCallStarted, Kind: ev.Type, ToolCallID: ev.ToolCallID, Message: ev.ToolCallName})

	case KindToolCallArgs:
		if ev.ToolCallID == "" {
			r.ignore(ev, "missing toolCallId")
			return Output{}, nil
		}
		accepted, implicit := r.calls.Append(ev.ToolCallID, ev.Delta)
		switch {
		case !accepted:
			r.ignore(ev, "tool call already finalized")
		case implicit:
			r.notify(event.Event{Type: event.ToolCallImplicitStart, Kind: ev.Type, ToolCallID: ev.ToolCallID})
		}

	case KindToolCallEnd:
		if ev.ToolCallID == "" {
			r.ignore(ev, "missing toolCallId")
			return Output{}, nil
		}
		if !r.finalizeCall(ev.ToolCallID, ev.Type) {
			r.ignore(ev, "tool call not started")
		}

	case KindToolCallResult:
		return r.toolResult(ev)

	case KindStateSnapshot:
		return Output{}, r.snapshotState(ctx, ev)

	case KindStateDelta:
		if len(ev.Patch) == 0 {
			r.ignore(ev, "missing delta")
			return Output{}, nil
		}
		if err := r.state.Apply(ctx, ev.Patch); err != nil {
			r.notify(event.Event{Type: event.StateRejected, Kind: ev.Type, Err: err})
			return Output{}, nil
		}
		r.notify(event.Event{Type: event.StateDelta, Kind: ev.Type})

	case KindMessagesSnapshot:
		if ev.Messages == nil {
			r.ignore(ev, "missing messages")
			return Output{}, nil
		}
		return Output{}, r.replaceMessages(ev.Type, ev.Messages)

	case KindLegacyMessage, KindLegacySystem:
		return r.ReduceText(legacyRole(ev.Kind), ev.LegacyText()), nil

	case KindLegacyError:
		err := ai.NewRunError(ev.LegacyText(), "")
		r.notify(event.Event{Type: event.RunError, Kind: ev.Type, Err: err})
		return Output{}, err

	default:
		r.ignore(ev, "unrecognized event kind")
	}
	return Output{}, nil
}

// ReduceText records a complete message that arrived outside the typed
// protocol, such as a plain completion or legacy envelope, and returns it
// as visible output.
func (r *Reducer) ReduceText(role ai.Role, text string) Output {
	if text == "" {
		return Output{}
	}
	id := r.messages.NextID()
	if err := r.messages.Append(ai.Message{ID: id, Role: role, Content: text}); err != nil {
		r.notify(event.Event{Type: event.Ignored, MessageID: id, Err: err})
	}
	return Output{MessageID: id, Text: text}
}

func (r *Reducer) startMessage(ev Event) {
	if ev.MessageID == "" {
		r.ignore(ev, "missing messageId")
		return
	}
	role := ev.Role
	if !role.Valid() {
		role = ai.RoleAssistant
	}
	r.roles[ev.MessageID] = role
	if role == ai.RoleAssistant {
		r.lastAssistantID = ev.MessageID
	}
	if r.messages.Register(ev.MessageID, role) {
		r.notify(event.Event{Type: event.MessageStarted, Kind: ev.Type, MessageID: ev.MessageID, Message: string(role)})
	}
}

func (r *Reducer) appendContent(ev Event, requireDelta bool) (Output, error) {
	switch {
	case ev.MessageID == "":
		r.ignore(ev, "missing messageId")
		return Output{}, nil
	case ev.Delta == "":
		if requireDelta {
			r.ignore(ev, "missing delta")
		}
		return Output{}, nil
	case r.finished:
		r.ignore(ev, "run already finished")
		return Output{}, nil
	}

	if err := r.messages.UpsertAssistantContent(ev.MessageID, ev.Delta); err != nil {
		r.notify(event.Event{Type: event.Ignored, Kind: ev.Type, MessageID: ev.MessageID, Err: err})
		return Output{}, nil
	}

	role, known := r.roles[ev.MessageID]
	if !known {
		r.roles[ev.MessageID] = ai.RoleAssistant
		r.lastAssistantID = ev.MessageID
		role = ai.RoleAssistant
	}
	if role != ai.RoleAssistant {
		return Output{}, nil
	}
	return Output{MessageID: ev.MessageID, Text: ev.Delta}, nil
}

// finalizeCall attaches a started call to its owning message: the declared
// parent, else the latest assistant message of the turn, else a new one.
func (r *Reducer) finalizeCall(toolCallID, kind string) bool {
	tc, parentID, ok := r.calls.Finalize(toolCallID)
	if !ok {
		return false
	}
	owner := firstNonEmpty(parentID, r.lastAssistantID)
	if owner == "" {
		owner = r.messages.NextID()
		r.roles[owner] = ai.RoleAssistant
		r.lastAssistantID = owner
	}
	r.messages.AttachToolCall(owner, tc)
	r.notify(event.Event{Type: event.ToolCallFinalized, Kind: kind, MessageID: owner, ToolCallID: toolCallID})
	return true
}

func (r *Reducer) toolResult(ev Event) (Output, error) {
	if ev.ToolCallID == "" {
		r.ignore(ev, "missing toolCallId")
		return Output{}, nil
	}
	if r.calls.State(ev.ToolCallID) == ToolCallStarted {
		r.finalizeCall(ev.ToolCallID, ev.Type)
	}

	id := firstNonEmpty(ev.MessageID, r.messages.NextID())
	msg := ai.Message{ID: id, Role: ai.RoleTool, Content: ev.Content, ToolCallID: ev.ToolCallID}
	if err := r.messages.Append(msg); err != nil {
		r.notify(event.Event{Type: event.Ignored, Kind: ev.Type, MessageID: id, ToolCallID: ev.ToolCallID, Err: err})
		return Output{}, nil
	}

	if !r.opts.toolSummaries {
		return Output{}, nil
	}
	tc, _ := r.messages.FindToolCall(ev.ToolCallID)
	return Output{MessageID: id, Text: FormatToolCall(tc, ev.Content)}, nil
}

// snapshotState replaces the state document. A snapshot carrying a
// well-formed messages array also replaces the transcript.
func (r *Reducer) snapshotState(ctx context.Context, ev Event) error {
	if len(ev.Snapshot) == 0 {
		r.ignore(ev, "missing snapshot")
		return nil
	}
	if err := r.state.Snapshot(ctx, ev.Snapshot); err != nil {
		r.notify(event.Event{Type: event.StateRejected, Kind: ev.Type, Err: err})
		return nil
	}
	r.notify(event.Event{Type: event.StateSnapshot, Kind: ev.Type})

	msgs, ok := snapshotMessages(ev.Snapshot)
	if !ok {
		return nil
	}
	return r.replaceMessages(ev.Type, msgs)
}

func (r *Reducer) replaceMessages(kind string, msgs []ai.Message) error {
	if err := r.messages.SnapshotReplace(msgs); err != nil {
		r.notify(event.Event{Type: event.StateRejected, Kind: kind, Err: err})
		return err
	}
	r.roles = make(map[string]ai.Role, len(msgs))
	r.lastAssistantID = ""
	for _, m := range msgs {
		r.roles[m.ID] = m.Role
		if m.Role == ai.RoleAssistant {
			r.lastAssistantID = m.ID
		}
	}
	r.notify(event.Event{Type: event.MessagesSnapshot, Kind: kind, Message: fmt.Sprintf("%d messages", len(msgs))})
	return nil
}

// snapshotMessages extracts a transcript embedded in a state snapshot. Every
// element must carry an id and a valid role.
func snapshotMessages(snapshot json.RawMessage) ([]ai.Message, bool) {
	arr := gjson.GetBytes(snapshot, "messages")
	if !arr.IsArray() {
		return nil, false
	}
	valid := true
	arr.ForEach(func(_, el gjson.Result) bool {
		valid = el.Get("id").Type == gjson.String && ai.Role(el.Get("role").String()).Valid()
		return valid
	})
	if !valid {
		return nil, false
	}
	var msgs []ai.Message
	if err := json.Unmarshal([]byte(arr.Raw), &msgs); err != nil {
		return nil, false
	}
	if msgs == nil {
		msgs = []ai.Message{}
	}
	return msgs, true
}

func (r *Reducer) ignore(ev Event, reason string) {
	r.notify(event.Event{
		Type:       event.Ignored,
		Kind:       ev.Type,
		MessageID:  ev.MessageID,
		ToolCallID: ev.ToolCallID,
		Message:    reason,
	})
}

func (r *Reducer) notify(e event.Event) {
	event.Emit(r.opts.events, e)
}

func legacyRole(k Kind) ai.Role {
	if k == KindLegacySystem {
		return ai.RoleSystem
	}
	return ai.RoleAssistant
}

// FormatToolCall renders the summary line for a completed tool call.
// Empty arguments or result lines are omitted.
func FormatToolCall(tc ai.ToolCall, result string) string {
	name := tc.Function.Name
	if name == "" {
		name = "unknown"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ **Tool Call: %s**\n", name)
	if tc.Function.Arguments != "" {
		fmt.Fprintf(&sb, "📋 Arguments: `%s`\n", tc.Function.Arguments)
	}
	if result != "" {
		fmt.Fprintf(&sb, "📤 Result: %s\n", result)
	}
	sb.WriteString("\n")
	return sb.String()
}

package agui

import (
	"strings"

	ai "github.com/spetersoncode/chatbridge"
)

// ToolCallState is the lifecycle position of one tool call id.
type ToolCallState int

const (
	ToolCallUnstarted ToolCallState = iota
	ToolCallStarted
	ToolCallFinalized
)

func (s ToolCallState) String() string {
	switch s {
	case ToolCallStarted:
		return "started"
	case ToolCallFinalized:
		return "finalized"
	default:
		return "unstarted"
	}
}

type pendingCall struct {
	name     string
	parentID string
	args     strings.Builder
}

// ToolCallAccumulator buffers streamed tool-call arguments keyed by tool-call
// id until TOOL_CALL_END, independent of message ordering.
// It is not safe for concurrent use; one turn owns it.
type ToolCallAccumulator struct {
	pending   map[string]*pendingCall
	order     []string
	finalized map[string]bool
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{
		pending:   make(map[string]*pendingCall),
		finalized: make(map[string]bool),
	}
}

// State returns the lifecycle state of id.
func (a *ToolCallAccumulator) State(id string) ToolCallState {
	switch {
	case a.finalized[id]:
		return ToolCallFinalized
	case a.pending[id] != nil:
		return ToolCallStarted
	default:
		return ToolCallUnstarted
	}
}

// Start moves id to Started and reports whether the frame had any effect.
// Repeating Start for a started or finalized id is a no-op, except that a
// call started implicitly by Append learns its name and parent here.
func (a *ToolCallAccumulator) Start(id, name, parentID string) bool {
	if a.finalized[id] {
		return false
	}
	if p, ok := a.pending[id]; ok {
		if p.name != "" {
			return false
		}
		p.name = name
		p.parentID = parentID
		return true
	}
	a.pending[id] = &pendingCall{name: name, parentID: parentID}
	a.order = append(a.order, id)
	return true
}

// Append adds delta to the argument buffer of id. An unstarted id is started
// implicitly with an empty name so no argument text is lost; implicit
// reports when that happened. Deltas for a finalized id are dropped and
// accepted is false.
func (a *ToolCallAccumulator) Append(id, delta string) (accepted, implicit bool) {
	if a.finalized[id] {
		return false, false
	}
	p, ok := a.pending[id]
	if !ok {
		p = &pendingCall{}
		a.pending[id] = p
		a.order = append(a.order, id)
		implicit = true
	}
	p.args.WriteString(delta)
	return true, implicit
}

// Finalize moves id to Finalized, discards its transient entry and returns
// the finished call together with the parent message id it declared.
// The arguments are not validated as JSON.
func (a *ToolCallAccumulator) Finalize(id string) (tc ai.ToolCall, parentID string, ok bool) {
	p, ok := a.pending[id]
	if !ok {
		return ai.ToolCall{}, "", false
	}
	delete(a.pending, id)
	a.finalized[id] = true
	for i, pid := range a.order {
		if pid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return ai.NewToolCall(id, p.name, p.args.String()), p.parentID, true
}

// Arguments returns the buffer accumulated so far for a started id.
func (a *ToolCallAccumulator) Arguments(id string) string {
	if p, ok := a.pending[id]; ok {
		return p.args.String()
	}
	return ""
}

// Pending returns the started ids in start order.
func (a *ToolCallAccumulator) Pending() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Reset discards all state.
func (a *ToolCallAccumulator) Reset() {
	a.pending = make(map[string]*pendingCall)
	a.order = nil
	a.finalized = make(map[string]bool)
}

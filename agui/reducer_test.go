package agui

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/event"
	"github.com/spetersoncode/chatbridge/store"
)

type reducerFixture struct {
	messages *store.MessageStore
	state    *store.State
	reducer  *Reducer
	events   chan event.Event
}

func newReducerFixture(opts ...Option) *reducerFixture {
	f := &reducerFixture{
		messages: store.NewMessageStore(store.WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) })),
		state:    store.NewState(nil),
		events:   event.NewChannel(),
	}
	f.reducer = NewReducer(f.messages, f.state, append([]Option{WithEvents(f.events)}, opts...)...)
	return f
}

// apply reduces SDK events and returns the concatenated visible output.
func (f *reducerFixture) apply(t *testing.T, evs ...events.Event) string {
	t.Helper()
	var text string
	for _, ev := range evs {
		out, err := f.reducer.Reduce(context.Background(), parse(t, ev))
		require.NoError(t, err)
		text += out.Text
	}
	return text
}

func (f *reducerFixture) applyRaw(t *testing.T, raw string) (Output, error) {
	t.Helper()
	return f.reducer.Reduce(context.Background(), parseRaw(t, raw))
}

func TestReducer_RunLifecycle(t *testing.T) {
	f := newReducerFixture()

	f.apply(t, events.NewRunStartedEvent("thread-1", "run-1"))
	assert.Equal(t, "run-1", f.reducer.RunID())
	assert.Equal(t, "thread-1", f.reducer.ThreadID())
	assert.False(t, f.reducer.Finished())

	f.apply(t, events.NewRunFinishedEvent("thread-1", "run-1"))
	assert.True(t, f.reducer.Finished())

	assert.Equal(t, []event.Type{event.RunStarted, event.RunFinished}, typesOf(drain(f.events)))
}

func TestReducer_TextMessages(t *testing.T) {
	f := newReducerFixture()

	text := f.apply(t,
		events.NewTextMessageStartEvent("m1", events.WithRole("assistant")),
		events.NewTextMessageContentEvent("m1", "Hel"),
		events.NewTextMessageContentEvent("m1", "lo"),
		events.NewTextMessageEndEvent("m1"),
	)
	assert.Equal(t, "Hello", text)

	msg, ok := f.messages.FindByID("m1")
	require.True(t, ok)
	assert.Equal(t, ai.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.True(t, f.messages.Sealed("m1"))

	assert.Equal(t, []event.Type{event.MessageStarted, event.MessageSealed}, typesOf(drain(f.events)))
}

func TestReducer_ContentWithoutStart(t *testing.T) {
	f := newReducerFixture()

	out, err := f.applyRaw(t, `{"type":"TEXT_MESSAGE_CONTENT","messageId":"m9","delta":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, Output{MessageID: "m9", Text: "hi"}, out)

	msg, ok := f.messages.FindByID("m9")
	require.True(t, ok)
	assert.Equal(t, ai.RoleAssistant, msg.Role)
}

func TestReducer_ContentOrderProperty(t *testing.T) {
	deltas := []string{"The ", "quick ", "brown ", "fox", " jumps"}
	f := newReducerFixture()

	// Interleave two messages; each must equal its own deltas in order.
	for i, d := range deltas {
		f.apply(t,
			events.NewTextMessageContentEvent("a", d),
			events.NewTextMessageContentEvent("b", fmt.Sprint(i)),
		)
	}

	a, _ := f.messages.FindByID("a")
	b, _ := f.messages.FindByID("b")
	assert.Equal(t, "The quick brown fox jumps", a.Content)
	assert.Equal(t, "01234", b.Content)
}

func TestReducer_UserMessagesAreNotVisible(t *testing.T) {
	f := newReducerFixture()

	text := f.apply(t,
		events.NewTextMessageStartEvent("u1", events.WithRole("user")),
		events.NewTextMessageContentEvent("u1", "echoed question"),
	)
	assert.Empty(t, text)

	msg, _ := f.messages.FindByID("u1")
	assert.Equal(t, ai.RoleUser, msg.Role)
	assert.Equal(t, "echoed question", msg.Content)
}

func TestReducer_ValidationIgnores(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"content without messageId", `{"type":"TEXT_MESSAGE_CONTENT","delta":"x"}`, "missing messageId"},
		{"content without delta", `{"type":"TEXT_MESSAGE_CONTENT","messageId":"m1"}`, "missing delta"},
		{"start without messageId", `{"type":"TEXT_MESSAGE_START"}`, "missing messageId"},
		{"end without messageId", `{"type":"TEXT_MESSAGE_END"}`, "missing messageId"},
		{"tool start without id", `{"type":"TOOL_CALL_START","toolCallName":"f"}`, "missing toolCallId"},
		{"tool args without id", `{"type":"TOOL_CALL_ARGS","delta":"{}"}`, "missing toolCallId"},
		{"tool end without id", `{"type":"TOOL_CALL_END"}`, "missing toolCallId"},
		{"tool result without id", `{"type":"TOOL_CALL_RESULT","content":"x"}`, "missing toolCallId"},
		{"tool end never started", `{"type":"TOOL_CALL_END","toolCallId":"ghost"}`, "tool call not started"},
		{"unrecognized kind", `{"type":"SOMETHING_NEW"}`, "unrecognized event kind"},
		{"state delta without patch", `{"type":"STATE_DELTA"}`, "missing delta"},
		{"state snapshot without snapshot", `{"type":"STATE_SNAPSHOT"}`, "missing snapshot"},
		{"messages snapshot without messages", `{"type":"MESSAGES_SNAPSHOT"}`, "missing messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReducerFixture()
			out, err := f.applyRaw(t, tt.raw)
			require.NoError(t, err)
			assert.Empty(t, out.Text)
			assert.Equal(t, 0, f.messages.Len())

			notes := drain(f.events)
			require.Len(t, notes, 1)
			assert.Equal(t, event.Ignored, notes[0].Type)
			assert.Equal(t, tt.reason, notes[0].Message)
		})
	}
}

func TestReducer_SealedMessageRejectsContent(t *testing.T) {
	f := newReducerFixture()
	f.apply(t,
		events.NewTextMessageContentEvent("m1", "done"),
		events.NewTextMessageEndEvent("m1"),
	)
	drain(f.events)

	text := f.apply(t, events.NewTextMessageContentEvent("m1", " again"))
	assert.Empty(t, text)

	msg, _ := f.messages.FindByID("m1")
	assert.Equal(t, "done", msg.Content)

	notes := drain(f.events)
	require.Len(t, notes, 1)
	assert.ErrorIs(t, notes[0].Err, ai.ErrMessageSealed)
}

func TestReducer_ContentAfterRunFinished(t *testing.T) {
	f := newReducerFixture()
	f.apply(t,
		events.NewRunStartedEvent("t", "r"),
		events.NewRunFinishedEvent("t", "r"),
	)
	assert.Empty(t, f.apply(t, events.NewTextMessageContentEvent("m1", "late")))
	assert.Equal(t, 0, f.messages.Len())
}

func TestReducer_TextMessageChunk(t *testing.T) {
	f := newReducerFixture()

	out, err := f.applyRaw(t, `{"type":"TEXT_MESSAGE_CHUNK","messageId":"m1","role":"assistant","delta":"one"}`)
	require.NoError(t, err)
	assert.Equal(t, "one", out.Text)

	out, err = f.applyRaw(t, `{"type":"TEXT_MESSAGE_CHUNK","messageId":"m1","delta":" two"}`)
	require.NoError(t, err)
	assert.Equal(t, " two", out.Text)

	msg, _ := f.messages.FindByID("m1")
	assert.Equal(t, "one two", msg.Content)
	assert.Equal(t, 1, f.messages.Len())
}

func TestReducer_ToolCalls(t *testing.T) {
	f := newReducerFixture()

	text := f.apply(t,
		events.NewTextMessageStartEvent("m1", events.WithRole("assistant")),
		events.NewToolCallStartEvent("c1", "random_number", events.WithParentMessageID("m1")),
		events.NewToolCallArgsEvent("c1", `{"min":1,`),
		events.NewToolCallArgsEvent("c1", `"max":100}`),
		events.NewToolCallEndEvent("c1"),
		events.NewTextMessageEndEvent("m1"),
		events.NewToolCallResultEvent("t1", "c1", "42"),
	)
	assert.Empty(t, text, "tool activity is not visible without summaries")

	msgs := f.messages.Messages()
	require.Len(t, msgs, 2)

	require.Len(t, msgs[0].ToolCalls, 1)
	tc := msgs[0].ToolCalls[0]
	assert.Equal(t, "c1", tc.ID)
	assert.Equal(t, "random_number", tc.Function.Name)
	assert.Equal(t, `{"min":1,"max":100}`, tc.Function.Arguments)

	assert.Equal(t, "t1", msgs[1].ID)
	assert.Equal(t, ai.RoleTool, msgs[1].Role)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
	assert.Equal(t, "42", msgs[1].Content)

	assert.Equal(t, []event.Type{
		event.MessageStarted,
		event.ToolCallStarted,
		event.ToolCallFinalized,
		event.MessageSealed,
	}, typesOf(drain(f.events)))
}

func TestReducer_ToolCallOwnership(t *testing.T) {
	t.Run("falls back to latest assistant message", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewTextMessageContentEvent("m1", "Let me check"),
			events.NewToolCallStartEvent("c1", "search"),
			events.NewToolCallEndEvent("c1"),
		)
		msg, _ := f.messages.FindByID("m1")
		require.Len(t, msg.ToolCalls, 1)
	})

	t.Run("creates a message when none exists", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallStartEvent("c1", "search"),
			events.NewToolCallEndEvent("c1"),
		)
		msgs := f.messages.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, ai.RoleAssistant, msgs[0].Role)
		assert.Regexp(t, `^msg-1700000000000-0$`, msgs[0].ID)
		require.Len(t, msgs[0].ToolCalls, 1)
	})

	t.Run("creates the declared parent", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallStartEvent("c1", "search", events.WithParentMessageID("ghost")),
			events.NewToolCallEndEvent("c1"),
		)
		msg, ok := f.messages.FindByID("ghost")
		require.True(t, ok)
		require.Len(t, msg.ToolCalls, 1)
	})
}

func TestReducer_ToolCallTolerance(t *testing.T) {
	t.Run("duplicate start is ignored", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallStartEvent("c1", "calc", events.WithParentMessageID("m1")),
			events.NewToolCallStartEvent("c1", "calc", events.WithParentMessageID("m1")),
			events.NewToolCallArgsEvent("c1", "{}"),
			events.NewToolCallEndEvent("c1"),
		)
		msg, _ := f.messages.FindByID("m1")
		require.Len(t, msg.ToolCalls, 1)
		assert.Contains(t, typesOf(drain(f.events)), event.ToolCallDuplicateStart)
	})

	t.Run("args before start keep their text", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallArgsEvent("c1", `{"q":`),
			events.NewToolCallStartEvent("c1", "search", events.WithParentMessageID("m1")),
			events.NewToolCallArgsEvent("c1", `"go"}`),
			events.NewToolCallEndEvent("c1"),
		)
		msg, _ := f.messages.FindByID("m1")
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, "search", msg.ToolCalls[0].Function.Name)
		assert.Equal(t, `{"q":"go"}`, msg.ToolCalls[0].Function.Arguments)
		assert.Equal(t, event.ToolCallImplicitStart, drain(f.events)[0].Type)
	})

	t.Run("result finalizes a pending call", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallStartEvent("c1", "calc", events.WithParentMessageID("m1")),
			events.NewToolCallArgsEvent("c1", "{}"),
			events.NewToolCallResultEvent("t1", "c1", "7"),
		)
		assert.Equal(t, ToolCallFinalized, f.reducer.ToolCalls().State("c1"))
		msg, _ := f.messages.FindByID("m1")
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, 2, f.messages.Len())
	})

	t.Run("replayed result is ignored", func(t *testing.T) {
		f := newReducerFixture()
		f.apply(t,
			events.NewToolCallResultEvent("t1", "c1", "7"),
			events.NewToolCallResultEvent("t1", "c1", "7"),
		)
		assert.Equal(t, 1, f.messages.Len())
	})
}

func TestReducer_ToolSummaries(t *testing.T) {
	f := newReducerFixture(WithToolSummaries(true))

	text := f.apply(t,
		events.NewToolCallStartEvent("c1", "random_number", events.WithParentMessageID("m1")),
		events.NewToolCallArgsEvent("c1", `{"min":1,"max":100}`),
		events.NewToolCallEndEvent("c1"),
		events.NewToolCallResultEvent("t1", "c1", "42"),
	)
	assert.Equal(t, "✅ **Tool Call: random_number**\n📋 Arguments: `{\"min\":1,\"max\":100}`\n📤 Result: 42\n\n", text)
}

func TestFormatToolCall(t *testing.T) {
	tests := []struct {
		name   string
		tc     ai.ToolCall
		result string
		want   string
	}{
		{"full", ai.NewToolCall("c", "f", `{"a":1}`), "ok", "✅ **Tool Call: f**\n📋 Arguments: `{\"a\":1}`\n📤 Result: ok\n\n"},
		{"no arguments", ai.NewToolCall("c", "f", ""), "ok", "✅ **Tool Call: f**\n📤 Result: ok\n\n"},
		{"no result", ai.NewToolCall("c", "f", "{}"), "", "✅ **Tool Call: f**\n📋 Arguments: `{}`\n\n"},
		{"unknown call", ai.ToolCall{}, "", "✅ **Tool Call: unknown**\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatToolCall(tt.tc, tt.result))
		})
	}
}

func TestReducer_State(t *testing.T) {
	ctx := context.Background()
	f := newReducerFixture()

	f.apply(t, events.NewStateSnapshotEvent(map[string]any{"state": "rnd before", "count": 1}))
	f.apply(t, events.NewStateDeltaEvent([]events.JSONPatchOperation{
		{Op: "replace", Path: "/state", Value: "rnd after"},
		{Op: "add", Path: "/tags", Value: []string{"a"}},
	}))

	doc, ok, err := f.state.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":"rnd after","count":1,"tags":["a"]}`, string(doc))

	t.Run("failed patch is absorbed", func(t *testing.T) {
		out, err := f.applyRaw(t, `{"type":"STATE_DELTA","delta":[{"op":"remove","path":"/missing"}]}`)
		require.NoError(t, err)
		assert.Empty(t, out.Text)

		after, _, _ := f.state.Get(ctx)
		assert.JSONEq(t, string(doc), string(after))
		assert.Contains(t, typesOf(drain(f.events)), event.StateRejected)
	})

	assert.Equal(t, 0, f.messages.Len(), "state snapshots without messages leave the transcript alone")
}

func TestReducer_StateSnapshotWithMessages(t *testing.T) {
	f := newReducerFixture()
	require.NoError(t, f.messages.Append(ai.Message{ID: "old", Role: ai.RoleUser, Content: "x"}))

	_, err := f.applyRaw(t, `{"type":"STATE_SNAPSHOT","snapshot":{"messages":[{"id":"a","role":"user","content":"q"},{"id":"b","role":"assistant","content":"r"}]}}`)
	require.NoError(t, err)

	msgs := f.messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)

	t.Run("non-transcript arrays are state only", func(t *testing.T) {
		_, err := f.applyRaw(t, `{"type":"STATE_SNAPSHOT","snapshot":{"messages":["not","messages"]}}`)
		require.NoError(t, err)
		assert.Equal(t, 2, f.messages.Len())
	})
}

func TestReducer_MessagesSnapshot(t *testing.T) {
	f := newReducerFixture()
	require.NoError(t, f.messages.Append(ai.Message{ID: "old", Role: ai.RoleUser, Content: "gone"}))

	_, err := f.applyRaw(t, `{"type":"MESSAGES_SNAPSHOT","messages":[
		{"id":"s1","role":"user","content":"q"},
		{"id":"s2","role":"assistant","content":"a"},
		{"id":"s3","role":"tool","content":"r","toolCallId":"c1"}
	]}`)
	require.NoError(t, err)

	msgs := f.messages.Messages()
	require.Len(t, msgs, 3)
	for i, id := range []string{"s1", "s2", "s3"} {
		assert.Equal(t, id, msgs[i].ID)
	}
	_, ok := f.messages.FindByID("old")
	assert.False(t, ok)

	// Later deltas continue the snapshot's latest assistant message.
	f.apply(t,
		events.NewToolCallStartEvent("c2", "f"),
		events.NewToolCallEndEvent("c2"),
	)
	s2, _ := f.messages.FindByID("s2")
	assert.Len(t, s2.ToolCalls, 1)

	t.Run("duplicate ids are terminal", func(t *testing.T) {
		_, err := f.applyRaw(t, `{"type":"MESSAGES_SNAPSHOT","messages":[{"id":"d","role":"user"},{"id":"d","role":"user"}]}`)
		require.Error(t, err)
		assert.True(t, ai.IsKind(err, ai.KindInvalidSnapshot))
		assert.Equal(t, 3, f.messages.Len())
	})
}

func TestReducer_RunError(t *testing.T) {
	f := newReducerFixture()

	_, err := f.applyRaw(t, `{"type":"RUN_ERROR","message":"rate limited","code":"429"}`)
	require.Error(t, err)
	assert.True(t, ai.IsKind(err, ai.KindProtocolRunError))
	assert.Equal(t, "rate limited", err.Error())

	var cerr *ai.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "429", cerr.Code)

	t.Run("empty message", func(t *testing.T) {
		_, err := f.applyRaw(t, `{"type":"RUN_ERROR"}`)
		assert.EqualError(t, err, "unknown error")
	})
}

func TestReducer_Legacy(t *testing.T) {
	f := newReducerFixture()

	out, err := f.applyRaw(t, `{"event":"message","data":{"content":"hi"}}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)

	out, err = f.applyRaw(t, `{"event":"system","data":{"content":"connected"}}`)
	require.NoError(t, err)
	assert.Equal(t, "connected", out.Text)

	msgs := f.messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ai.RoleAssistant, msgs[0].Role)
	assert.Equal(t, ai.RoleSystem, msgs[1].Role)

	_, err = f.applyRaw(t, `{"event":"error","data":{"message":"bad request"}}`)
	assert.EqualError(t, err, "bad request")
}

func TestReducer_PassThroughKinds(t *testing.T) {
	f := newReducerFixture()
	text := f.apply(t,
		events.NewStepStartedEvent("plan"),
		events.NewStepFinishedEvent("plan"),
		events.NewCustomEvent("progress", events.WithValue(map[string]any{"pct": 10})),
	)
	assert.Empty(t, text)
	assert.Equal(t, 0, f.messages.Len())
	assert.Empty(t, drain(f.events))
}

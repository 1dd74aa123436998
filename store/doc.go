// Package store holds the authoritative in-memory state of one conversation
// thread.
//
// The package offers two types:
//   - [MessageStore]: the ordered transcript, with the duplicate-submission policy
//   - [State]: the opaque side-channel state document driven by
//     STATE_SNAPSHOT and STATE_DELTA events
//
// [State] keeps its document behind the [Adapter] interface, with a default
// in-memory implementation provided via [MemoryAdapter].
//
// # Message Store
//
//	history := store.NewMessageStore()
//	err := history.Append(chatbridge.Message{
//	    ID:      chatbridge.GenerateMessageID(time.Now(), 0),
//	    Role:    chatbridge.RoleUser,
//	    Content: "Hello",
//	})
//	if errors.Is(err, chatbridge.ErrDuplicateMessage) {
//	    // widget re-submitted the same turn
//	}
//
// Assistant text is accumulated with UpsertAssistantContent as
// TEXT_MESSAGE_CONTENT deltas arrive, and finished tool calls are attached
// with AttachToolCall.
//
// # Duplicate Window
//
// A user message is rejected when a stored user message has identical content
// and its id embeds a timestamp less than the window (default 5s) away from
// now. The timestamp is parsed from ids of the form "msg-<epochMillis>-<index>".
// Ids of any other shape parse as timestamp 0, so messages carrying externally
// supplied ids are never treated as duplicates of each other by the window.
//
// # State
//
//	state := store.NewState(nil)
//	_ = state.Snapshot(ctx, json.RawMessage(`{"count":1}`))
//	_ = state.Apply(ctx, json.RawMessage(`[{"op":"replace","path":"/count","value":2}]`))
//
// # Thread Safety
//
// All types are safe for concurrent use.
package store

// Package agui ingests AG-UI backend responses into a chatbridge transcript.
//
// AG-UI (Agent-User Interface) is an event-based protocol describing the
// lifecycle of one agent run: run start and finish, incremental text deltas,
// tool-call lifecycle, and state snapshots or deltas. This package is the
// client side of that protocol. It turns a raw response body into exactly
// one [chatbridge.Result] for the widget while reconstructing the thread's
// transcript in a [store.MessageStore].
//
// # Overview
//
// The pipeline, leaf first:
//
//   - [ParseEvent]: decodes one JSON frame into the closed [Event] union
//   - [Detect]: classifies a whole body as stream, legacy envelope, plain
//     completion, or malformed
//   - [Decode] and [Decoder]: split SSE text into frames, whole or
//     incrementally as chunks arrive
//   - [ToolCallAccumulator]: per tool-call argument buffers
//   - [Reducer]: applies one event to the store and returns its visible output
//   - [Dispatcher]: drives the above for one [Response] and calls the sink once
//
// # Usage
//
//	messages := store.NewMessageStore()
//	state := store.NewState(nil)
//	d := agui.NewDispatcher(messages, state, agui.WithToolSummaries(true))
//
//	resp, err := httpClient.Post(...)
//	d.Handle(ctx, agui.Response{StatusCode: resp.StatusCode, Body: resp.Body}, sink)
//
// Build the request body with [NewRunAgentInput].
//
// # Tolerance
//
// A malformed SSE frame is skipped and never aborts the stream. Unknown event
// kinds are ignored. Frames missing the identifiers their kind requires are
// ignored and reported as [event.Ignored] notifications.
//
// # Thread Safety
//
// A Dispatcher handles one turn at a time; callers serialize turns. The store
// it writes to is itself safe for concurrent use.
package agui

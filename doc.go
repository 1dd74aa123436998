// Package chatbridge reconstructs chat conversations from AG-UI agent
// responses for a chat widget.
//
// A backend answers each user turn with either a stream of typed AG-UI
// events over Server-Sent Events, a legacy {event, data} envelope, or a plain
// chat-completion JSON body. The engine detects which, folds the events into
// an ordered transcript of [Message] values and hands the widget exactly one
// [Result] per turn through a [Sink].
//
// This package holds the shared data model:
//
//   - [Message], [ToolCall] and [Role]: the AG-UI message wire format
//   - [Result] and [Sink]: what the widget receives
//   - [Error] and [ErrorKind]: the error taxonomy of a turn
//
// The work happens in the subpackages:
//
//   - [github.com/spetersoncode/chatbridge/agui]: frame parsing, format
//     detection, stream decoding, tool call accumulation, event reduction
//     and the response dispatcher
//   - [github.com/spetersoncode/chatbridge/store]: the message store with
//     its double submission check, and the state document
//   - [github.com/spetersoncode/chatbridge/client]: the HTTP transport
//   - [github.com/spetersoncode/chatbridge/bridge]: the widget session
//
// # Basic Usage
//
//	c, err := client.New(client.Config{URL: "http://localhost:9000/"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session := bridge.NewSession(c)
//
//	session.Handle(ctx, bridge.Body{Messages: []bridge.WidgetMessage{
//	    {Role: "user", Text: "What is the capital of France?"},
//	}}, chatbridge.SinkFunc(func(r chatbridge.Result) {
//	    fmt.Println(r.Text)
//	}))
//
// # Errors
//
// Errors that stop a turn reach the widget as Result.Error:
//
//	[Backend error 502]: bad gateway      // KindTransport
//	unexpected end of JSON input         // KindMalformedPayload
//	agent crashed                        // KindProtocolRunError
//
// A malformed frame inside a stream or a repeated user message is absorbed
// locally ([Recoverable] reports true) and never reaches the widget.
package chatbridge

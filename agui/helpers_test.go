package agui

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/encoding/sse"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/chatbridge/event"
)

// frame encodes ev the way a backend would.
func frame(t *testing.T, ev events.Event) []byte {
	t.Helper()
	data, err := ev.ToJSON()
	require.NoError(t, err)
	return data
}

// parse round-trips ev through its wire encoding.
func parse(t *testing.T, ev events.Event) Event {
	t.Helper()
	e, err := ParseEvent(frame(t, ev))
	require.NoError(t, err)
	return e
}

// parseRaw decodes a hand-written frame.
func parseRaw(t *testing.T, raw string) Event {
	t.Helper()
	e, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	return e
}

// sseBody writes evs with the SDK SSE writer and terminates the stream.
func sseBody(t *testing.T, evs ...events.Event) string {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	writer := sse.NewSSEWriter()
	for _, ev := range evs {
		require.NoError(t, writer.WriteEvent(context.Background(), w, ev))
	}
	require.NoError(t, w.Flush())
	buf.WriteString("data: [DONE]\n\n")
	return buf.String()
}

// drain collects every notification currently buffered in ch.
func drain(ch chan event.Event) []event.Event {
	var out []event.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func typesOf(evs []event.Event) []event.Type {
	out := make([]event.Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

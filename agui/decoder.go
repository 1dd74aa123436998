package agui

import (
	"bytes"
	"iter"
	"strings"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/event"
)

const (
	// DataPrefix starts every SSE line carrying a frame.
	DataPrefix = "data:"

	// DoneSentinel is the payload closing a stream. It is not JSON.
	DoneSentinel = "[DONE]"
)

// Decode returns the frames of a complete SSE text in line order.
// Malformed frames are skipped and reported on events as event.FrameSkipped.
// The sequence is lazy and single use.
func Decode(raw string, events chan<- event.Event) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for line := range strings.Lines(raw) {
			ev, ok := parseLine(line, events)
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Decoder is an incremental SSE decoder for bodies that arrive in chunks.
// A partial trailing line is buffered until the chunk completing it is fed.
type Decoder struct {
	pending []byte
	events  chan<- event.Event
}

// NewDecoder creates a Decoder reporting skipped frames on events.
func NewDecoder(events chan<- event.Event) *Decoder {
	return &Decoder{events: events}
}

// Feed consumes chunk and returns the frames completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.pending = append(d.pending, chunk...)

	var out []Event
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := string(d.pending[:i])
		d.pending = d.pending[i+1:]
		if ev, ok := parseLine(line, d.events); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Flush decodes whatever partial line remains and resets the buffer.
// Call it once the body is exhausted.
func (d *Decoder) Flush() []Event {
	line := string(d.pending)
	d.pending = nil
	if ev, ok := parseLine(line, d.events); ok {
		return []Event{ev}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet forming a line.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func parseLine(line string, events chan<- event.Event) (Event, bool) {
	payload, ok := strings.CutPrefix(line, DataPrefix)
	if !ok {
		return Event{}, false
	}
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == DoneSentinel {
		return Event{}, false
	}

	ev, err := ParseEvent([]byte(payload))
	if err != nil {
		event.Emit(events, event.Event{
			Type:    event.FrameSkipped,
			Message: "skipped malformed frame",
			Err:     ai.NewMalformedFrameError(payload, err),
		})
		return Event{}, false
	}
	return ev, true
}

package agui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/store"
)

// Separator joins visible text of distinct messages within one run.
const Separator = "\n\n"

const readChunkSize = 32 * 1024

// Response is what the transport hands the engine: a status and a body that
// may be a complete text or a live stream.
type Response struct {
	// StatusCode is the HTTP status. Zero is treated as success.
	StatusCode int
	Body       io.Reader
}

// OK reports whether the status is a success status.
func (r Response) OK() bool {
	return r.StatusCode == 0 || (r.StatusCode >= 200 && r.StatusCode < 300)
}

// Dispatcher turns one backend response into exactly one sink call while
// reconstructing the transcript.
type Dispatcher struct {
	messages *store.MessageStore
	state    *store.State
	opts     []Option
}

// NewDispatcher creates a Dispatcher for one thread.
func NewDispatcher(messages *store.MessageStore, state *store.State, opts ...Option) *Dispatcher {
	if state == nil {
		state = store.NewState(nil)
	}
	return &Dispatcher{messages: messages, state: state, opts: opts}
}

// Messages returns the thread's transcript store.
func (d *Dispatcher) Messages() *store.MessageStore { return d.messages }

// State returns the thread's side-channel state.
func (d *Dispatcher) State() *store.State { return d.state }

// Handle processes resp and calls sink.OnResponse exactly once, on every
// path including a panic during reduction. Cancelling ctx stops reading
// the body; the turn then finishes with the text accumulated so far.
func (d *Dispatcher) Handle(ctx context.Context, resp Response, sink ai.Sink) {
	once := ai.NewOnceSink(sink)
	defer func() {
		if p := recover(); p != nil {
			once.OnResponse(ai.ErrorResult(fmt.Errorf("internal error: %v", p)))
		}
	}()
	once.OnResponse(d.handle(ctx, resp))
}

// HandleText processes a complete successful body.
func (d *Dispatcher) HandleText(ctx context.Context, raw string, sink ai.Sink) {
	d.Handle(ctx, Response{StatusCode: 200, Body: strings.NewReader(raw)}, sink)
}

func (d *Dispatcher) handle(ctx context.Context, resp Response) ai.Result {
	body := resp.Body
	if body == nil {
		body = strings.NewReader("")
	}

	if !resp.OK() {
		text, _ := io.ReadAll(body)
		return ai.ErrorResult(ai.NewTransportError(resp.StatusCode, strings.TrimSpace(string(text))))
	}

	t := &turn{
		ctx:     ctx,
		reducer: NewReducer(d.messages, d.state, d.opts...),
		body:    body,
	}
	t.decoder = NewDecoder(t.reducer.opts.events)
	return t.run()
}

// turn holds the per-response reading and accumulation state.
type turn struct {
	ctx     context.Context
	reducer *Reducer
	decoder *Decoder
	body    io.Reader
	text    visibleText
}

func (t *turn) run() ai.Result {
	// Buffer until the body is recognizably a stream or ends. A stream is
	// then reduced frame by frame as chunks arrive.
	var head []byte
	buf := make([]byte, readChunkSize)
	streaming := false

	for {
		if t.ctx.Err() != nil {
			return t.finish()
		}
		n, readErr := t.body.Read(buf)
		if n > 0 {
			if streaming {
				if err := t.reduce(t.decoder.Feed(buf[:n])); err != nil {
					return ai.ErrorResult(err)
				}
			} else {
				head = append(head, buf[:n]...)
				if IsStream(string(head)) {
					streaming = true
					if err := t.reduce(t.decoder.Feed(head)); err != nil {
						return ai.ErrorResult(err)
					}
					head = nil
				}
			}
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF):
			if streaming {
				if err := t.reduce(t.decoder.Flush()); err != nil {
					return ai.ErrorResult(err)
				}
				return t.finish()
			}
			return t.single(string(head))
		case t.ctx.Err() != nil:
			return t.finish()
		default:
			if t.text.Len() > 0 {
				return t.finish()
			}
			return ai.ErrorResult(&ai.Error{Kind: ai.KindTransport, Msg: "read response body", Cause: readErr})
		}
	}
}

// single handles a body that is not a stream.
func (t *turn) single(raw string) ai.Result {
	det := Detect(raw)
	switch det.Format {
	case FormatLegacyEnvelope:
		for _, ev := range det.Envelopes {
			if !ev.Kind.IsLegacy() {
				continue
			}
			if err := t.reduce([]Event{ev}); err != nil {
				return ai.ErrorResult(err)
			}
			break
		}
		return t.finish()

	case FormatPlainCompletion:
		t.text.Add(t.reducer.ReduceText(ai.RoleAssistant, det.Completion))
		return t.finish()

	default:
		return ai.ErrorResult(det.Err)
	}
}

func (t *turn) reduce(evs []Event) error {
	for _, ev := range evs {
		out, err := t.reducer.Reduce(t.ctx, ev)
		if err != nil {
			return err
		}
		t.text.Add(out)
	}
	return nil
}

func (t *turn) finish() ai.Result {
	if t.text.Len() == 0 {
		return ai.TextResult(ai.NoContentText)
	}
	return ai.TextResult(t.text.String())
}

// visibleText accumulates output, separating text of distinct messages.
type visibleText struct {
	sb     strings.Builder
	lastID string
}

func (v *visibleText) Add(out Output) {
	if out.Text == "" {
		return
	}
	if v.sb.Len() > 0 && out.MessageID != v.lastID && !strings.HasSuffix(v.sb.String(), Separator) {
		v.sb.WriteString(Separator)
	}
	v.sb.WriteString(out.Text)
	v.lastID = out.MessageID
}

func (v *visibleText) Len() int { return v.sb.Len() }

func (v *visibleText) String() string { return v.sb.String() }

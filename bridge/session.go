package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	ai "github.com/spetersoncode/chatbridge"
	"github.com/spetersoncode/chatbridge/agui"
	"github.com/spetersoncode/chatbridge/event"
	"github.com/spetersoncode/chatbridge/store"
)

// Runner sends one run to the backend and lets the dispatcher ingest the
// answer. It must call sink exactly once. *client.Client implements Runner.
type Runner interface {
	Run(ctx context.Context, d *agui.Dispatcher, input agui.RunAgentInput, sink ai.Sink)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for message ids, run ids and the
// duplicate check.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDuplicateWindow overrides store.DefaultDuplicateWindow.
func WithDuplicateWindow(d time.Duration) Option {
	return func(s *Session) {
		s.storeOpts = append(s.storeOpts, store.WithDuplicateWindow(d))
	}
}

// WithToolSummaries makes tool results visible as summary lines.
func WithToolSummaries(enabled bool) Option {
	return func(s *Session) {
		s.aguiOpts = append(s.aguiOpts, agui.WithToolSummaries(enabled))
	}
}

// WithEvents routes engine notifications to ch. The session also reports
// rejected duplicate user messages there.
func WithEvents(ch chan<- event.Event) Option {
	return func(s *Session) {
		s.events = ch
		s.aguiOpts = append(s.aguiOpts, agui.WithEvents(ch))
	}
}

// WithThreadID fixes the thread id instead of generating one.
func WithThreadID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.threadID = id
		}
	}
}

// Session is one widget session: a stable thread id, its transcript and
// state document, and the runner that reaches the backend.
type Session struct {
	mu         sync.Mutex
	idMu       sync.RWMutex
	threadID   string
	runner     Runner
	messages   *store.MessageStore
	state      *store.State
	dispatcher *agui.Dispatcher
	logger     *slog.Logger
	events     chan<- event.Event
	now        func() time.Time
	// merged counts widget history entries already considered.
	merged int
	runID  string

	storeOpts []store.Option
	aguiOpts  []agui.Option
}

// NewSession creates a Session with a fresh thread id.
func NewSession(runner Runner, opts ...Option) *Session {
	s := &Session{
		threadID: ai.GenerateThreadID(),
		runner:   runner,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.storeOpts = append(s.storeOpts, store.WithClock(s.now))
	s.messages = store.NewMessageStore(s.storeOpts...)
	s.state = store.NewState(nil)
	s.dispatcher = agui.NewDispatcher(s.messages, s.state, s.aguiOpts...)
	return s
}

// ThreadID returns the session's thread id.
func (s *Session) ThreadID() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.threadID
}

// Messages returns a copy of the authoritative transcript.
func (s *Session) Messages() []ai.Message { return s.messages.Messages() }

// Thread returns the thread id, the most recent run id and a copy of the
// transcript. It waits for a running turn to finish.
func (s *Session) Thread() ai.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Thread(s.threadID, s.runID)
}

// State returns the side-channel state document of the thread.
func (s *Session) State() *store.State { return s.state }

// Handler returns s.Handle as a widget connect callback.
func (s *Session) Handler() Handler { return s.Handle }

// Handle runs one turn. New user messages from body are appended to the
// transcript, the whole transcript is sent to the backend and signals
// receives exactly one result.
func (s *Session) Handle(ctx context.Context, body Body, signals Signals) {
	once := ai.NewOnceSink(signals)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("turn panicked", "thread_id", s.threadID, "panic", r)
			once.OnResponse(ai.ErrorResult(errors.New("internal error")))
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !body.HasUserMessage() {
		s.logger.Warn("turn without user message", "thread_id", s.threadID)
		once.OnResponse(ai.ErrorResult(ai.ErrNoUserMessage))
		return
	}

	start := s.now()
	s.merge(body.Messages, start)

	var state []byte
	if doc, ok, err := s.state.Get(ctx); err == nil && ok {
		state = doc
	}
	input := agui.NewRunAgentInput(s.threadID, start, s.messages.Messages(), state)
	s.runID = input.RunID

	log := s.logger.With(
		"thread_id", input.ThreadID,
		"run_id", input.RunID,
	)
	log.Info("turn started", "message_count", len(input.Messages))

	s.runner.Run(ctx, s.dispatcher, input, ai.SinkFunc(func(r ai.Result) {
		duration := time.Since(start)
		if r.IsError() {
			log.Warn("turn failed", "duration_ms", duration.Milliseconds(), "error", r.Error)
		} else {
			log.Info("turn completed", "duration_ms", duration.Milliseconds(), "text_len", len(r.Text))
		}
		once.OnResponse(r)
	}))

	if !once.Delivered() {
		log.Error("runner returned without a result")
		once.OnResponse(ai.TextResult(ai.NoContentText))
	}
}

// merge appends the widget's user messages that are not duplicates of
// stored ones. The widget resends its whole history every turn, so only
// entries past the previously merged prefix are candidates; a shorter
// history means the widget was cleared and is considered from the start.
// Stored ids are assigned by the store so they stay unique across turns.
func (s *Session) merge(history []WidgetMessage, now time.Time) {
	if len(history) < s.merged {
		s.merged = 0
	}
	fresh := history[s.merged:]
	s.merged = len(history)

	for _, msg := range ToMessages(fresh, now) {
		if msg.Role != ai.RoleUser {
			continue
		}
		msg.ID = ""
		err := s.messages.Append(msg)
		switch {
		case err == nil:
		case errors.Is(err, ai.ErrDuplicateMessage):
			s.logger.Debug("duplicate user message rejected", "thread_id", s.threadID, "error", err)
			event.Emit(s.events, event.Event{Type: event.DuplicateRejected, Message: msg.Content, Err: err})
		default:
			s.logger.Warn("user message not stored", "thread_id", s.threadID, "error", err)
		}
	}
}

// Reset starts a new thread: a new id, an empty transcript and no state.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idMu.Lock()
	s.threadID = ai.GenerateThreadID()
	s.idMu.Unlock()
	s.merged = 0
	s.runID = ""
	s.messages.Clear()
	return s.state.Reset(ctx)
}

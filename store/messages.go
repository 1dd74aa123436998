package store

import (
	"fmt"
	"sync"
	"time"

	ai "github.com/spetersoncode/chatbridge"
)

// DefaultDuplicateWindow is how close in time two identical user messages
// must be to count as one widget double submission.
const DefaultDuplicateWindow = 5 * time.Second

// Option configures a MessageStore.
type Option func(*MessageStore)

// WithDuplicateWindow overrides DefaultDuplicateWindow. A window <= 0
// disables the duplicate check.
func WithDuplicateWindow(d time.Duration) Option {
	return func(m *MessageStore) {
		m.window = d
	}
}

// WithClock sets the time source used by the duplicate check and id generation.
func WithClock(now func() time.Time) Option {
	return func(m *MessageStore) {
		if now != nil {
			m.now = now
		}
	}
}

// MessageStore is the authoritative ordered transcript of one thread.
// Messages are appended at the tail; deltas mutate them in place through an
// id index so streaming never rescans the transcript.
type MessageStore struct {
	mu       sync.RWMutex
	messages []ai.Message
	index    map[string]int
	sealed   map[string]bool
	window   time.Duration
	now      func() time.Time
}

// NewMessageStore creates an empty MessageStore.
func NewMessageStore(opts ...Option) *MessageStore {
	m := &MessageStore{
		messages: make([]ai.Message, 0),
		index:    make(map[string]int),
		sealed:   make(map[string]bool),
		window:   DefaultDuplicateWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Messages returns a copy of all messages.
func (m *MessageStore) Messages() []ai.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ai.Message, len(m.messages))
	for i, msg := range m.messages {
		result[i] = msg.Clone()
	}
	return result
}

// Len returns the number of messages.
func (m *MessageStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Clear removes all messages.
func (m *MessageStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = make([]ai.Message, 0)
	m.index = make(map[string]int)
	m.sealed = make(map[string]bool)
}

// NextID generates a widget-shaped id for a message appended now.
func (m *MessageStore) NextID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ai.GenerateMessageID(m.now(), len(m.messages))
}

// Append inserts msg at the tail.
//
// A user message is rejected with ErrDuplicateMessage when IsDuplicate
// reports true. A message without an id gets one from NextID. Tool messages
// must carry a ToolCallID.
func (m *MessageStore) Append(msg ai.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isDuplicateLocked(msg) {
		return ai.NewDuplicateMessageError(msg.Content)
	}
	if msg.Role == ai.RoleTool && msg.ToolCallID == "" {
		return ErrMissingToolCallID
	}
	if msg.ID == "" {
		msg.ID = ai.GenerateMessageID(m.now(), len(m.messages))
	}
	if _, ok := m.index[msg.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, msg.ID)
	}
	m.appendLocked(msg.Clone())
	return nil
}

// IsDuplicate reports whether msg is a user message whose content matches a
// stored user message created within the duplicate window.
//
// Creation time is read from the stored message's id (see
// ai.MessageTimestamp). Ids without an embedded timestamp read as 0, which is
// never inside the window, so such messages are never duplicates.
func (m *MessageStore) IsDuplicate(msg ai.Message) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isDuplicateLocked(msg)
}

func (m *MessageStore) isDuplicateLocked(msg ai.Message) bool {
	if msg.Role != ai.RoleUser || m.window <= 0 {
		return false
	}
	now := m.now().UnixMilli()
	window := m.window.Milliseconds()
	for _, h := range m.messages {
		if h.Role != ai.RoleUser || h.Content != msg.Content {
			continue
		}
		delta := now - ai.MessageTimestamp(h.ID)
		if delta < 0 {
			delta = -delta
		}
		if delta < window {
			return true
		}
	}
	return false
}

// FindByID returns the message with the given id.
func (m *MessageStore) FindByID(id string) (ai.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return ai.Message{}, false
	}
	return m.messages[i].Clone(), true
}

// FindToolCall returns the attached tool call with the given id.
func (m *MessageStore) FindToolCall(toolCallID string) (ai.ToolCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		for _, tc := range m.messages[i].ToolCalls {
			if tc.ID == toolCallID {
				return tc, true
			}
		}
	}
	return ai.ToolCall{}, false
}

// Register pre-registers an empty message with the given id and role.
// It reports whether a message was created; an existing id is left untouched.
func (m *MessageStore) Register(id string, role ai.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[id]; ok {
		return false
	}
	if role == "" {
		role = ai.RoleAssistant
	}
	m.appendLocked(ai.Message{ID: id, Role: role})
	return true
}

// UpsertAssistantContent appends delta to the content of message id,
// creating an assistant message first if none exists.
// Returns ErrMessageSealed if the message already ended.
func (m *MessageStore) UpsertAssistantContent(id, delta string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed[id] {
		return fmt.Errorf("%w: %s", ai.ErrMessageSealed, id)
	}
	i, ok := m.index[id]
	if !ok {
		m.appendLocked(ai.Message{ID: id, Role: ai.RoleAssistant, Content: delta})
		return nil
	}
	m.messages[i].Content += delta
	return nil
}

// AttachToolCall appends tc to the tool calls of message id, creating an
// assistant message first if none exists. Sealing only freezes content, so
// calls may attach to a message whose text already ended.
func (m *MessageStore) AttachToolCall(id string, tc ai.ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[id]
	if !ok {
		m.appendLocked(ai.Message{ID: id, Role: ai.RoleAssistant})
		i = len(m.messages) - 1
	}
	m.messages[i].ToolCalls = append(m.messages[i].ToolCalls, tc)
}

// Seal marks the content of message id immutable.
func (m *MessageStore) Seal(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed[id] = true
}

// Sealed reports whether message id has been sealed.
func (m *MessageStore) Sealed(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sealed[id]
}

// SnapshotReplace replaces the whole transcript with msgs, in order.
// If two messages share an id the store is left unchanged and an
// InvalidSnapshot error is returned.
func (m *MessageStore) SnapshotReplace(msgs []ai.Message) error {
	index := make(map[string]int, len(msgs))
	replaced := make([]ai.Message, 0, len(msgs))
	for i, msg := range msgs {
		if _, ok := index[msg.ID]; ok {
			return ai.NewInvalidSnapshotError(msg.ID)
		}
		index[msg.ID] = i
		replaced = append(replaced, msg.Clone())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = replaced
	m.index = index
	m.sealed = make(map[string]bool)
	return nil
}

// Thread returns the transcript as a Thread.
func (m *MessageStore) Thread(threadID, runID string) ai.Thread {
	return ai.Thread{
		ThreadID: threadID,
		RunID:    runID,
		Messages: m.Messages(),
	}
}

func (m *MessageStore) appendLocked(msg ai.Message) {
	m.index[msg.ID] = len(m.messages)
	m.messages = append(m.messages, msg)
}

package bridge

import (
	"context"
	"time"

	ai "github.com/spetersoncode/chatbridge"
)

// Widget role names. The widget uses "ai" for assistant replies.
const (
	WidgetRoleUser      = "user"
	WidgetRoleAI        = "ai"
	WidgetRoleAssistant = "assistant"
)

// WidgetMessage is one entry of the widget's visible history.
type WidgetMessage struct {
	Role    string `json:"role"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

// Body is what the widget hands the connect callback.
type Body struct {
	Messages []WidgetMessage `json:"messages,omitempty"`
}

// Signals is the widget's response callback.
type Signals interface {
	OnResponse(ai.Result)
}

// Handler is the widget connect callback. It must call
// signals.OnResponse exactly once.
type Handler func(ctx context.Context, body Body, signals Signals)

// ToMessages converts widget history into transcript messages. Ids take the
// form msg-<now millis>-<index>; "ai" becomes assistant and text wins over
// content.
func ToMessages(msgs []WidgetMessage, now time.Time) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for i, m := range msgs {
		role := ai.Role(m.Role)
		if m.Role == WidgetRoleAI {
			role = ai.RoleAssistant
		}
		content := m.Text
		if content == "" {
			content = m.Content
		}
		out = append(out, ai.Message{
			ID:      ai.GenerateMessageID(now, i),
			Role:    role,
			Content: content,
		})
	}
	return out
}

// HasUserMessage reports whether any message in body is from the user.
func (b Body) HasUserMessage() bool {
	for _, m := range b.Messages {
		if m.Role == WidgetRoleUser {
			return true
		}
	}
	return false
}

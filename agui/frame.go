package agui

import (
	"encoding/json"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/tidwall/gjson"

	ai "github.com/spetersoncode/chatbridge"
)

// ParseEvent decodes one JSON frame into an Event. Only invalid JSON is an
// error; valid JSON is classified by its type or event discriminator, and an
// unrecognized shape yields KindUnknown.
//
// Typed frames are decoded with the SDK first. When the SDK rejects a frame
// because an ancillary field has an unexpected JSON type (a numeric error
// code, a multimodal message content), the frame is read field by field
// instead of being dropped.
func ParseEvent(data []byte) (Event, error) {
	if !json.Valid(data) {
		var v any
		return Event{}, json.Unmarshal(data, &v)
	}

	doc := gjson.ParseBytes(data)
	e := Event{Raw: json.RawMessage(data)}

	if t := doc.Get("type"); t.Type == gjson.String && t.Str != "" {
		e.Type = t.Str
		e.Kind = Kind(t.Str)
		if !knownKinds[e.Kind] {
			e.Kind = KindUnknown
			e.readFields(doc)
			return e, nil
		}
		if sdk, err := events.EventFromJSON(data); err == nil {
			e.fromSDK(sdk, doc)
		} else {
			e.readFields(doc)
		}
		return e, nil
	}

	if k := Kind(doc.Get("event").String()); doc.Get("event").Type == gjson.String && k.IsLegacy() {
		e.Kind = k
		e.Type = string(k)
		e.readLegacy(doc.Get("data"))
		return e, nil
	}

	e.Kind = KindUnknown
	return e, nil
}

// fromSDK copies a decoded SDK event into e. Opaque JSON payloads are taken
// from the frame itself so they reach the state document byte for byte.
func (e *Event) fromSDK(sdk events.Event, doc gjson.Result) {
	switch ev := sdk.(type) {
	case *events.RunStartedEvent:
		e.ThreadID, e.RunID = ev.ThreadIDValue, ev.RunIDValue
	case *events.RunFinishedEvent:
		e.ThreadID, e.RunID = ev.ThreadIDValue, ev.RunIDValue
	case *events.RunErrorEvent:
		e.Message = ev.Message
		e.Code = deref(ev.Code)
		e.RunID = ev.RunIDValue
	case *events.StepStartedEvent:
		e.StepName = ev.StepName
	case *events.StepFinishedEvent:
		e.StepName = ev.StepName
	case *events.TextMessageStartEvent:
		e.MessageID = ev.MessageID
		e.Role = ai.Role(deref(ev.Role))
	case *events.TextMessageContentEvent:
		e.MessageID, e.Delta = ev.MessageID, ev.Delta
	case *events.TextMessageChunkEvent:
		e.MessageID = deref(ev.MessageID)
		e.Role = ai.Role(deref(ev.Role))
		e.Delta = deref(ev.Delta)
	case *events.TextMessageEndEvent:
		e.MessageID = ev.MessageID
	case *events.ToolCallStartEvent:
		e.ToolCallID = ev.ToolCallID
		e.ToolCallName = ev.ToolCallName
		e.ParentMessageID = deref(ev.ParentMessageID)
	case *events.ToolCallArgsEvent:
		e.ToolCallID, e.Delta = ev.ToolCallID, ev.Delta
	case *events.ToolCallEndEvent:
		e.ToolCallID = ev.ToolCallID
	case *events.ToolCallResultEvent:
		e.MessageID = ev.MessageID
		e.ToolCallID = ev.ToolCallID
		e.Content = ev.Content
		e.Role = ai.Role(deref(ev.Role))
	case *events.StateSnapshotEvent:
		e.Snapshot = rawOf(doc.Get("snapshot"))
	case *events.StateDeltaEvent:
		e.Patch = rawOf(doc.Get("delta"))
	case *events.MessagesSnapshotEvent:
		e.Messages = fromSDKMessages(ev.Messages)
	case *events.RawEvent:
		e.Value = rawOf(doc.Get("event"))
		e.Source = deref(ev.Source)
	case *events.CustomEvent:
		e.Name = ev.Name
		e.Value = rawOf(doc.Get("value"))
	default:
		e.readFields(doc)
	}
}

// readFields fills e from whatever fields the frame carries. String fields
// holding another JSON type keep that value's JSON text.
func (e *Event) readFields(doc gjson.Result) {
	e.ThreadID = textOf(doc.Get("threadId"))
	e.RunID = textOf(doc.Get("runId"))
	e.MessageID = textOf(doc.Get("messageId"))
	e.Role = ai.Role(textOf(doc.Get("role")))
	e.ToolCallID = textOf(doc.Get("toolCallId"))
	e.ToolCallName = textOf(doc.Get("toolCallName"))
	e.ParentMessageID = textOf(doc.Get("parentMessageId"))
	e.Content = textOf(doc.Get("content"))
	e.Message = textOf(doc.Get("message"))
	e.Code = textOf(doc.Get("code"))
	e.Snapshot = rawOf(doc.Get("snapshot"))
	e.Name = textOf(doc.Get("name"))
	e.Value = rawOf(doc.Get("value"))
	e.Source = textOf(doc.Get("source"))
	e.StepName = textOf(doc.Get("stepName"))

	switch e.Kind {
	case KindStateDelta:
		e.Patch = rawOf(doc.Get("delta"))
	case KindRaw:
		e.Value = rawOf(doc.Get("event"))
	default:
		e.Delta = textOf(doc.Get("delta"))
	}

	if msgs := doc.Get("messages"); msgs.IsArray() {
		e.Messages = readMessages(msgs)
	}
}

// readLegacy reads the data of a legacy envelope, which is either an object
// with content and message fields or the text itself.
func (e *Event) readLegacy(data gjson.Result) {
	if data.IsObject() {
		e.Content = textOf(data.Get("content"))
		e.Message = textOf(data.Get("message"))
		return
	}
	e.Content = textOf(data)
}

// fromSDKMessages converts a snapshot transcript. Activity messages carry
// widget state rather than chat text and are left out.
func fromSDKMessages(in []events.Message) []ai.Message {
	if in == nil {
		return nil
	}
	out := make([]ai.Message, 0, len(in))
	for _, m := range in {
		role := ai.Role(m.Role)
		if !role.Valid() {
			continue
		}
		msg := ai.Message{
			ID:         m.ID,
			Role:       role,
			Content:    deref(m.Content),
			Name:       deref(m.Name),
			ToolCallID: deref(m.ToolCallID),
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ai.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: ai.Function{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// readMessages converts a snapshot transcript element by element. An element
// without a string id or a chat role is skipped; the rest of the snapshot
// still applies.
func readMessages(arr gjson.Result) []ai.Message {
	out := make([]ai.Message, 0)
	arr.ForEach(func(_, el gjson.Result) bool {
		id, role := el.Get("id"), ai.Role(el.Get("role").String())
		if id.Type != gjson.String || el.Get("role").Type != gjson.String || !role.Valid() {
			return true
		}
		msg := ai.Message{
			ID:         id.Str,
			Role:       role,
			Content:    contentText(el.Get("content")),
			Name:       textOf(el.Get("name")),
			ToolCallID: textOf(el.Get("toolCallId")),
		}
		el.Get("toolCalls").ForEach(func(_, tc gjson.Result) bool {
			var call ai.ToolCall
			if json.Unmarshal([]byte(tc.Raw), &call) == nil && call.ID != "" {
				msg.ToolCalls = append(msg.ToolCalls, call)
			}
			return true
		})
		out = append(out, msg)
		return true
	})
	return out
}

// contentText reads message content. Multimodal content arrives as an array
// of parts; its text parts are joined and other parts are dropped.
func contentText(r gjson.Result) string {
	if !r.IsArray() {
		return textOf(r)
	}
	var parts []string
	r.ForEach(func(_, part gjson.Result) bool {
		if t := part.Get("text"); part.Get("type").String() == "text" && t.Type == gjson.String {
			parts = append(parts, t.Str)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

// textOf returns r as a string when it is a JSON string. Other JSON values
// are returned as their JSON text so tool results carrying objects survive.
func textOf(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.Str
	}
	return r.Raw
}

// rawOf returns r's JSON text, or nil when the field is absent.
func rawOf(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package agui

import (
	"encoding/json"
	"errors"
	"strings"

	ai "github.com/spetersoncode/chatbridge"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"
)

// Format classifies a response body.
type Format int

const (
	FormatMalformed Format = iota
	FormatStream
	FormatLegacyEnvelope
	FormatPlainCompletion
)

func (f Format) String() string {
	switch f {
	case FormatStream:
		return "stream"
	case FormatLegacyEnvelope:
		return "legacy_envelope"
	case FormatPlainCompletion:
		return "plain_completion"
	default:
		return "malformed"
	}
}

// ErrUnrecognizedFormat is the cause of a malformed result for a body that
// is valid JSON of no known shape.
var ErrUnrecognizedFormat = errors.New("unrecognized response format")

// Detection is the outcome of Detect. Fields beyond Format are populated
// only for the format they belong to.
type Detection struct {
	Format Format

	// Envelopes holds the parsed legacy entries in body order.
	Envelopes []Event

	// Completion is the assistant text of a plain completion.
	Completion string

	// Err is a *chatbridge.Error of kind KindMalformedPayload.
	Err error
}

// IsStream reports whether raw looks like SSE text: it starts with a data
// field or contains one at the start of any line.
func IsStream(raw string) bool {
	return strings.HasPrefix(raw, DataPrefix) || strings.Contains(raw, "\n"+DataPrefix)
}

// Detect classifies raw. It never fails: malformed input is reported in the
// Detection.
func Detect(raw string) Detection {
	if IsStream(raw) {
		return Detection{Format: FormatStream}
	}

	// gjson does not report why a document is invalid; the decode error is
	// surfaced to the widget verbatim.
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return malformed(err)
	}

	doc := gjson.Parse(raw)
	switch {
	case doc.IsArray() && hasLegacyElement(doc):
		return Detection{Format: FormatLegacyEnvelope, Envelopes: parseEnvelopes(doc)}
	case doc.IsObject() && doc.Get("event").Exists():
		ev, err := ParseEvent([]byte(doc.Raw))
		if err != nil {
			return malformed(err)
		}
		return Detection{Format: FormatLegacyEnvelope, Envelopes: []Event{ev}}
	case doc.IsObject() && doc.Get("choices").IsArray():
		return Detection{Format: FormatPlainCompletion, Completion: completionText(raw)}
	}
	return malformed(ErrUnrecognizedFormat)
}

func malformed(err error) Detection {
	return Detection{Format: FormatMalformed, Err: ai.NewMalformedPayloadError(err)}
}

func hasLegacyElement(doc gjson.Result) bool {
	found := false
	doc.ForEach(func(_, el gjson.Result) bool {
		if Kind(el.Get("event").String()).IsLegacy() {
			found = true
			return false
		}
		return true
	})
	return found
}

func parseEnvelopes(doc gjson.Result) []Event {
	var out []Event
	doc.ForEach(func(_, el gjson.Result) bool {
		if ev, err := ParseEvent([]byte(el.Raw)); err == nil {
			out = append(out, ev)
		}
		return true
	})
	return out
}

// completionText extracts the assistant text of an OpenAI-style body. Full
// completions carry choices[].message; streamed chunk objects posted as one
// body carry choices[].delta.
func completionText(raw string) string {
	var completion openai.ChatCompletion
	if err := json.Unmarshal([]byte(raw), &completion); err == nil {
		for _, choice := range completion.Choices {
			if choice.Message.Content != "" {
				return choice.Message.Content
			}
		}
	}

	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal([]byte(raw), &chunk); err == nil {
		var sb strings.Builder
		for _, choice := range chunk.Choices {
			sb.WriteString(choice.Delta.Content)
		}
		return sb.String()
	}
	return ""
}

package agui

import "github.com/spetersoncode/chatbridge/event"

// Option configures a Reducer or Dispatcher.
type Option func(*options)

type options struct {
	toolSummaries bool
	events        chan<- event.Event
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithToolSummaries makes TOOL_CALL_RESULT produce a visible summary line
// naming the tool, its arguments and its result.
func WithToolSummaries(enabled bool) Option {
	return func(o *options) {
		o.toolSummaries = enabled
	}
}

// WithEvents sets the observer channel. Notifications are sent without
// blocking and dropped when the channel is full.
func WithEvents(ch chan<- event.Event) Option {
	return func(o *options) {
		o.events = ch
	}
}

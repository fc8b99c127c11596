package timeline

import "github.com/thousandtech/chatroom/internal/chat"

// Event is a timeline mutation.
type Event interface {
	apply(Timeline) Timeline
}

// ResetEvent clears the timeline on room switch.
type ResetEvent struct{}

// AppendEvent appends a history batch, newest last.
type AppendEvent struct {
	Messages []chat.RawMessage
}

// PrependEvent inserts an older page, newest last.
type PrependEvent struct {
	Messages []chat.RawMessage
}

// LiveEvent appends one pushed message.
type LiveEvent struct {
	Message chat.RawMessage
}

func (ResetEvent) apply(t Timeline) Timeline     { return t.Reset() }
func (e AppendEvent) apply(t Timeline) Timeline  { return t.AppendBatch(e.Messages) }
func (e PrependEvent) apply(t Timeline) Timeline { return t.PrependBatch(e.Messages) }
func (e LiveEvent) apply(t Timeline) Timeline    { return t.AppendLive(e.Message) }

// Reduce applies ev to t and returns the resulting timeline.
func Reduce(t Timeline, ev Event) Timeline {
	if ev == nil {
		return t
	}
	return ev.apply(t)
}

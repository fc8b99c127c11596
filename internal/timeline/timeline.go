package timeline

import (
	"strings"

	"github.com/thousandtech/chatroom/internal/chat"
)

// Kind tags a timeline item.
type Kind int

const (
	KindDivider Kind = iota
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindDivider:
		return "divider"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Item is one rendered entry. Dividers carry the minute bucket and time view of
// the message they annotate; the label text is produced at render time.
// ID is a stable identity used for scroll anchoring.
type Item struct {
	ID      uint64
	Kind    Kind
	Bucket  int64
	Time    chat.TimeView
	Message Message
	Own     bool
}

// Timeline is an immutable, oldest-first log of dividers and messages.
// Every operation returns a new value; the receiver is never modified.
//
// Invariants: no two adjacent dividers; a divider opens every run of messages
// whose minute bucket differs from the previous run; a non-empty timeline
// starts with a divider.
type Timeline struct {
	items   []Item
	last    Message
	hasLast bool
	self    string
	norm    Normalizer
	nextID  uint64
}

// New returns an empty timeline. Messages authored by self are marked Own.
func New(self string, norm Normalizer) Timeline {
	return Timeline{
		self:   strings.TrimSpace(self),
		norm:   norm,
		nextID: 1,
	}
}

func (t Timeline) Len() int { return len(t.items) }

func (t Timeline) Self() string { return t.self }

func (t Timeline) Normalizer() Normalizer { return t.norm }

// Items returns a copy of the items.
func (t Timeline) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// At returns the item at i.
func (t Timeline) At(i int) (Item, bool) {
	if i < 0 || i >= len(t.items) {
		return Item{}, false
	}
	return t.items[i], true
}

// Last returns the newest message, used as prev for live delivery.
func (t Timeline) Last() (Message, bool) {
	return t.last, t.hasLast
}

// First returns the oldest message.
func (t Timeline) First() (Message, bool) {
	for i := range t.items {
		if t.items[i].Kind == KindMessage {
			return t.items[i].Message, true
		}
	}
	return Message{}, false
}

// Messages returns the messages in order, without dividers.
func (t Timeline) Messages() []Message {
	out := make([]Message, 0, len(t.items))
	for i := range t.items {
		if t.items[i].Kind == KindMessage {
			out = append(out, t.items[i].Message)
		}
	}
	return out
}

// IndexOf returns the position of the item with id, or -1.
func (t Timeline) IndexOf(id uint64) int {
	if id == 0 {
		return -1
	}
	for i := range t.items {
		if t.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Reset drops all items. Identity counters keep running so ids from before the
// reset never resolve against the new content.
func (t Timeline) Reset() Timeline {
	return Timeline{
		self:   t.self,
		norm:   t.norm,
		nextID: t.nextID,
	}
}

// AppendBatch appends messages (newest last) after everything stored.
func (t Timeline) AppendBatch(raws []chat.RawMessage) Timeline {
	if len(raws) == 0 {
		return t
	}
	out := t.grow(2 * len(raws))
	for _, raw := range raws {
		out.appendMessage(out.norm.Normalize(raw))
	}
	return out
}

// AppendLive appends one message delivered by the realtime channel.
func (t Timeline) AppendLive(raw chat.RawMessage) Timeline {
	out := t.grow(2)
	out.appendMessage(out.norm.Normalize(raw))
	return out
}

// PrependBatch inserts messages (newest last) that are all older than the
// stored ones. At the splice point the divider decision is made on minute
// buckets: when the newest prepended message shares the bucket of the stored
// head divider, that divider is dropped so the run is annotated once, at its
// oldest message.
func (t Timeline) PrependBatch(raws []chat.RawMessage) Timeline {
	if len(raws) == 0 {
		return t
	}
	if len(t.items) == 0 {
		return t.AppendBatch(raws)
	}

	batch := Timeline{self: t.self, norm: t.norm, nextID: t.nextID}
	batch = batch.AppendBatch(raws)
	newest, _ := batch.Last()

	head := t.items
	firstStored, ok := t.First()
	switch {
	case !ok:
	case !NeedsDivider(&newest, firstStored) && head[0].Kind == KindDivider:
		head = head[1:]
	case NeedsDivider(&newest, firstStored) && head[0].Kind != KindDivider:
		batch.items = append(batch.items, batch.divider(firstStored))
	}

	out := t
	out.items = make([]Item, 0, len(batch.items)+len(head))
	out.items = append(out.items, batch.items...)
	out.items = append(out.items, head...)
	out.nextID = batch.nextID
	return out
}

// grow returns a copy whose item slice is private to the copy.
func (t Timeline) grow(extra int) Timeline {
	out := t
	out.items = make([]Item, len(t.items), len(t.items)+extra)
	copy(out.items, t.items)
	return out
}

func (t *Timeline) appendMessage(msg Message) {
	var prev *Message
	if t.hasLast {
		last := t.last
		prev = &last
	}
	if NeedsDivider(prev, msg) && !t.endsWithDivider() {
		t.items = append(t.items, t.divider(msg))
	}
	t.items = append(t.items, Item{
		ID:      t.takeID(),
		Kind:    KindMessage,
		Bucket:  MinuteBucket(msg.SentAt),
		Time:    msg.Time,
		Message: msg,
		Own:     t.self != "" && strings.TrimSpace(msg.Author) == t.self,
	})
	t.last = msg
	t.hasLast = true
}

func (t *Timeline) divider(annotates Message) Item {
	return Item{
		ID:     t.takeID(),
		Kind:   KindDivider,
		Bucket: MinuteBucket(annotates.SentAt),
		Time:   annotates.Time,
	}
}

func (t *Timeline) endsWithDivider() bool {
	return len(t.items) > 0 && t.items[len(t.items)-1].Kind == KindDivider
}

func (t *Timeline) takeID() uint64 {
	if t.nextID == 0 {
		t.nextID = 1
	}
	id := t.nextID
	t.nextID++
	return id
}

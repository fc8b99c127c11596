package timeline

import (
	"math"
	"strings"
	"time"

	"github.com/thousandtech/chatroom/internal/chat"
)

// Message is a chat message whose send time has been resolved.
type Message struct {
	RoomID string
	Author string
	Body   string
	SentAt int64 // unix seconds
	Time   chat.TimeView
}

// Raw re-encodes the message with its canonical time view attached.
// Normalizing the result yields the same Message.
func (m Message) Raw() chat.RawMessage {
	view := m.Time
	return chat.RawMessage{
		RoomID:        m.RoomID,
		Username:      m.Author,
		Msg:           m.Body,
		TimestampData: &view,
	}
}

// zoneless layouts are interpreted in the reference zone.
var zonelessLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// Normalizer resolves raw messages against a fixed reference zone. Now is the
// last-resort time source for messages without any usable time.
type Normalizer struct {
	Zone *time.Location
	Now  func() time.Time
}

// NewNormalizer returns a normalizer for zone using the wall clock.
func NewNormalizer(zone *time.Location) Normalizer {
	if zone == nil {
		zone = LoadZone("")
	}
	return Normalizer{Zone: zone, Now: time.Now}
}

func (n Normalizer) zone() *time.Location {
	if n.Zone == nil {
		return fallbackZone
	}
	return n.Zone
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Normalize resolves the send time of raw. A message already carrying a
// timestamp_data with a timestamp is taken as is; otherwise the numeric ts
// wins over the date strings, and the current time is used when none parses.
func (n Normalizer) Normalize(raw chat.RawMessage) Message {
	msg := Message{
		RoomID: raw.RoomID,
		Author: raw.Username,
		Body:   raw.Msg,
	}
	if raw.TimestampData != nil && raw.TimestampData.Timestamp != 0 {
		msg.Time = *raw.TimestampData
		msg.SentAt = raw.TimestampData.Timestamp
		return msg
	}

	epoch, ok := n.epochOf(raw)
	if !ok {
		epoch = n.now().Unix()
	}
	msg.SentAt = epoch
	msg.Time = NewTimeView(epoch, n.zone())
	return msg
}

func (n Normalizer) epochOf(raw chat.RawMessage) (int64, bool) {
	if raw.TS != nil && !math.IsNaN(*raw.TS) && !math.IsInf(*raw.TS, 0) {
		return int64(math.Floor(*raw.TS)), true
	}
	if t, ok := ParseTimestamp(raw.Timestamp, n.zone()); ok {
		return t.Unix(), true
	}
	if raw.TimestampData != nil {
		if t, ok := ParseTimestamp(raw.TimestampData.Full, n.zone()); ok {
			return t.Unix(), true
		}
	}
	return 0, false
}

// ParseTimestamp parses the date strings the server has used over time.
func ParseTimestamp(value string, zone *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if zone == nil {
		zone = fallbackZone
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, zone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NewTimeView computes the canonical time view of epoch in zone.
func NewTimeView(epoch int64, zone *time.Location) chat.TimeView {
	if zone == nil {
		zone = fallbackZone
	}
	t := time.Unix(epoch, 0).In(zone)
	return chat.TimeView{
		Full:      t.Format("2006-01-02 15:04:05"),
		Date:      t.Format("2006-01-02"),
		Time:      t.Format("15:04"),
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Weekday:   isoWeekday(t.Weekday()),
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Second:    t.Second(),
		Timestamp: epoch,
	}
}

func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

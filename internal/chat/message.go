// Package chat holds the wire model shared by the chat-room HTTP API and the
// realtime channel.
package chat

import (
	"strconv"
	"strings"
)

// DefaultRoom is the room every user lands in after login.
const DefaultRoom = "general"

// TimeView is the display-oriented time record the server attaches to messages
// as "timestamp_data". All fields are computed in one reference timezone.
type TimeView struct {
	Full      string `json:"full"`    // 2006-01-02 15:04:05
	Date      string `json:"date"`    // 2006-01-02
	Time      string `json:"time"`    // 15:04
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	Weekday   int    `json:"weekday"` // Monday=1 .. Sunday=7
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Second    int    `json:"second"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

// RawMessage is a chat message as delivered by the history endpoint or the
// realtime channel. Only one of TS, Timestamp and TimestampData is required;
// older servers send the date string only.
type RawMessage struct {
	RoomID        string    `json:"room_id,omitempty"`
	Username      string    `json:"username"`
	Msg           string    `json:"msg"`
	TS            *float64  `json:"ts,omitempty"`
	Timestamp     string    `json:"timestamp,omitempty"`
	TimestampData *TimeView `json:"timestamp_data,omitempty"`
}

// HasAuthor reports whether the message names a sender.
func (m RawMessage) HasAuthor() bool {
	return strings.TrimSpace(m.Username) != ""
}

// HasBody reports whether the message carries visible text.
func (m RawMessage) HasBody() bool {
	return strings.TrimSpace(m.Msg) != ""
}

// DedupKey identifies a message across history pages and live delivery.
// The server has no message ids, so sender, body and second are combined.
func (m RawMessage) DedupKey(sentAt int64) string {
	var b strings.Builder
	b.Grow(len(m.Username) + len(m.Msg) + 24)
	b.WriteString(strconv.FormatInt(sentAt, 10))
	b.WriteByte('|')
	b.WriteString(strings.TrimSpace(m.Username))
	b.WriteByte('|')
	b.WriteString(m.Msg)
	return b.String()
}

// Clone returns a deep copy.
func (m RawMessage) Clone() RawMessage {
	out := m
	if m.TS != nil {
		ts := *m.TS
		out.TS = &ts
	}
	if m.TimestampData != nil {
		view := *m.TimestampData
		out.TimestampData = &view
	}
	return out
}

// Epoch is a convenience for building RawMessage.TS.
func Epoch(seconds int64) *float64 {
	v := float64(seconds)
	return &v
}

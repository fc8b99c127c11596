package chat

import (
	"encoding/json"
	"fmt"
)

// Realtime event names.
const (
	EventNewMessage  = "new_message"
	EventRoomJoined  = "room_joined"
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventError       = "error"
	EventUserLogin   = "user_login"
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
)

// Envelope is the JSON frame carried over the realtime channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomJoined is the payload of room_joined.
type RoomJoined struct {
	RoomID      string   `json:"room_id"`
	RoomName    string   `json:"room_name"`
	ActiveUsers []string `json:"active_users"`
}

// Presence is the payload of user_joined and user_left.
type Presence struct {
	RoomID      string   `json:"room_id"`
	Username    string   `json:"username"`
	ActiveUsers []string `json:"active_users"`
}

// ServerError is the payload of error.
type ServerError struct {
	Msg string `json:"msg"`
}

// JoinRoom is emitted once local history has rendered.
type JoinRoom struct {
	Username string `json:"username"`
	RoomID   string `json:"room_id"`
}

// UserLogin is emitted right after the channel connects.
type UserLogin struct {
	Username string `json:"username"`
}

// SendMessage is emitted for outgoing chat text.
type SendMessage struct {
	Msg string `json:"msg"`
}

// Event is a decoded inbound realtime event. Exactly one payload field is set,
// matching Name.
type Event struct {
	Name       string
	Message    *RawMessage
	RoomJoined *RoomJoined
	Presence   *Presence
	Error      *ServerError
}

// NewEnvelope encodes an outbound event.
func NewEnvelope(name string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return Envelope{Event: name, Data: data}, nil
}

// DecodeEvent turns an inbound envelope into an Event. Unknown event names are
// returned with no payload so callers can ignore them.
func DecodeEvent(env Envelope) (Event, error) {
	ev := Event{Name: env.Event}
	var target any
	switch env.Event {
	case EventNewMessage:
		ev.Message = &RawMessage{}
		target = ev.Message
	case EventRoomJoined:
		ev.RoomJoined = &RoomJoined{}
		target = ev.RoomJoined
	case EventUserJoined, EventUserLeft:
		ev.Presence = &Presence{}
		target = ev.Presence
	case EventError:
		ev.Error = &ServerError{}
		target = ev.Error
	default:
		return ev, nil
	}
	if len(env.Data) == 0 {
		return Event{}, fmt.Errorf("event %s: missing data", env.Event)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", env.Event, err)
	}
	return ev, nil
}

package session

import (
	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/paging"
)

// Effect is work a transition asks the caller to perform.
type Effect interface {
	effect()
}

// FetchHistory asks for one history page. Initial is set for the first page
// of a room visit; its result goes to HistoryLoaded, later pages to OlderLoaded.
type FetchHistory struct {
	Request paging.Request
	Initial bool
}

// Emit asks for a realtime event to be sent.
type Emit struct {
	Event   string
	Payload any
}

func (FetchHistory) effect() {}
func (Emit) effect()         {}

func joinRoomEffect(user, room string) Emit {
	return Emit{Event: chat.EventJoinRoom, Payload: chat.JoinRoom{Username: user, RoomID: room}}
}

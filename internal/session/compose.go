package session

import (
	"errors"
	"strings"

	"github.com/thousandtech/chatroom/internal/chat"
)

var (
	// ErrBlankMessage is returned for text that is empty after trimming.
	ErrBlankMessage = errors.New("不能发送空白消息")
	// ErrNotLoggedIn is returned when sending without a user.
	ErrNotLoggedIn = errors.New("请先登录")
	// ErrNoRoom is returned when sending before any room was entered.
	ErrNoRoom = errors.New("not in a room")
)

// Compose validates outgoing text and returns the send_message emit.
// The text is sent as typed; only the blank check trims it.
func (s State) Compose(text string) (Emit, error) {
	if s.User == "" {
		return Emit{}, ErrNotLoggedIn
	}
	if s.Room == "" {
		return Emit{}, ErrNoRoom
	}
	if strings.TrimSpace(text) == "" {
		return Emit{}, ErrBlankMessage
	}
	return Emit{Event: chat.EventSendMessage, Payload: chat.SendMessage{Msg: text}}, nil
}

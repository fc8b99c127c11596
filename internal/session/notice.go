package session

import (
	"fmt"
	"time"
)

// NoticeKind classifies a notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeJoin
	NoticeLeave
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeJoin:
		return "join"
	case NoticeLeave:
		return "leave"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a system line shown outside the message timeline, so the
// timeline keeps only dividers and messages.
type Notice struct {
	At   time.Time
	Kind NoticeKind
	Room string
	Text string
}

func joinNotice(user string) string  { return fmt.Sprintf("%s 加入了聊天室", user) }
func leaveNotice(user string) string { return fmt.Sprintf("%s 离开了聊天室", user) }

func (s State) withNotice(kind NoticeKind, text string) State {
	out := s.clone()
	out.Notices = append(out.Notices, Notice{At: s.now(), Kind: kind, Room: s.Room, Text: text})
	limit := DefaultMaxNotices
	if s.opts != nil && s.opts.MaxNotices > 0 {
		limit = s.opts.MaxNotices
	}
	if over := len(out.Notices) - limit; over > 0 {
		out.Notices = append(out.Notices[:0:0], out.Notices[over:]...)
	}
	return out
}

// LastNotice returns the newest notice.
func (s State) LastNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

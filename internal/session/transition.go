package session

import (
	"cmp"
	"slices"
	"strings"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/paging"
)

// SwitchRoom leaves the current room and starts a visit of room. The new
// state has an empty timeline, a fresh cursor and the initial history fetch
// in flight; responses for the previous visit become stale.
func (s State) SwitchRoom(room string) (State, []Effect) {
	room = strings.TrimSpace(room)
	if room == "" {
		room = chat.DefaultRoom
	}

	out := s.clone()
	out.Room = room
	out.RoomName = ""
	out.Timeline = s.Timeline.Reset()
	out.ActiveUsers = nil
	out.HistoryReady = false
	out.HistoryFailed = false
	out.Joined = false
	out.pending = nil

	cur, req, _ := s.controller().Begin(paging.NewCursor(room))
	out.Cursor = cur

	lg := logging.WithRoom("session", room)
	lg.Debug().Str("from", s.Room).Msg("switching room")
	return out, []Effect{FetchHistory{Request: req, Initial: true}}
}

// HistoryLoaded applies the initial history page of the current visit, replays
// live messages that arrived meanwhile and requests join_room. The join is
// requested whether or not the fetch succeeded.
func (s State) HistoryLoaded(req paging.Request, page chat.HistoryPage, err error) (State, []Effect, paging.Outcome) {
	if s.HistoryReady {
		return s, nil, paging.OutcomeStale
	}
	cur, tl, outcome := s.controller().Complete(s.Cursor, req, page, err, s.Timeline)
	if outcome == paging.OutcomeStale {
		return s, nil, outcome
	}

	log := logging.WithRoom("session", s.Room)
	out := s.clone()
	out.Cursor = cur
	out.Timeline = tl
	out.HistoryReady = true

	if outcome == paging.OutcomeFailed {
		log.Warn().Err(err).Msg("initial history failed")
		out.HistoryFailed = true
		out = out.withNotice(NoticeError, "加载历史消息失败")
	}
	for _, raw := range page.Messages {
		logMalformed(s.Room, raw)
	}

	out = out.replayPending()
	out.Joined = s.User != ""

	log.Debug().
		Int("messages", len(page.Messages)).
		Bool("has_more", out.Cursor.HasMore).
		Msg("initial history applied")

	if !out.Joined {
		return out, nil, outcome
	}
	return out, []Effect{joinRoomEffect(s.User, s.Room)}, outcome
}

// LoadOlder requests the next older page when scrolling reaches the top.
// It returns no effect while a load is in flight or history is exhausted.
func (s State) LoadOlder() (State, []Effect) {
	if !s.CanLoadOlder() {
		return s, nil
	}
	cur, req, ok := s.controller().Begin(s.Cursor)
	if !ok {
		return s, nil
	}
	out := s.clone()
	out.Cursor = cur
	return out, []Effect{FetchHistory{Request: req}}
}

// OlderLoaded applies a page requested by LoadOlder.
func (s State) OlderLoaded(req paging.Request, page chat.HistoryPage, err error) (State, paging.Outcome) {
	cur, tl, outcome := s.controller().Complete(s.Cursor, req, page, err, s.Timeline)
	if outcome == paging.OutcomeStale {
		return s, outcome
	}
	for _, raw := range page.Messages {
		logMalformed(s.Room, raw)
	}
	out := s.clone()
	out.Cursor = cur
	out.Timeline = tl
	return out, outcome
}

// Handle applies an inbound realtime event.
func (s State) Handle(ev chat.Event) State {
	switch ev.Name {
	case chat.EventNewMessage:
		if ev.Message != nil {
			return s.receive(*ev.Message)
		}
	case chat.EventRoomJoined:
		if ev.RoomJoined != nil {
			return s.roomJoined(*ev.RoomJoined)
		}
	case chat.EventUserJoined:
		if ev.Presence != nil {
			return s.presence(*ev.Presence, true)
		}
	case chat.EventUserLeft:
		if ev.Presence != nil {
			return s.presence(*ev.Presence, false)
		}
	case chat.EventError:
		if ev.Error != nil {
			lg := logging.WithRoom("session", s.Room)
			lg.Warn().Str("msg", ev.Error.Msg).Msg("server error")
			return s.withNotice(NoticeError, "错误: "+ev.Error.Msg)
		}
	}
	return s
}

func (s State) receive(raw chat.RawMessage) State {
	if s.Room == "" {
		return s
	}
	if raw.RoomID != "" && raw.RoomID != s.Room {
		lg := logging.WithRoom("session", s.Room)
		lg.Debug().Str("message_room", raw.RoomID).Msg("dropping message for another room")
		return s
	}
	logMalformed(s.Room, raw)

	out := s.clone()
	if !s.HistoryReady {
		out.pending = append(out.pending, raw.Clone())
		return out
	}
	out.Timeline = s.Timeline.AppendLive(raw)
	return out
}

// replayPending appends buffered live messages oldest first, skipping any the
// history page already contained.
func (s State) replayPending() State {
	if len(s.pending) == 0 {
		return s
	}
	norm := s.normalizer()

	type buffered struct {
		raw    chat.RawMessage
		sentAt int64
	}
	entries := make([]buffered, 0, len(s.pending))
	for _, raw := range s.pending {
		entries = append(entries, buffered{raw: raw, sentAt: norm.Normalize(raw).SentAt})
	}
	slices.SortStableFunc(entries, func(a, b buffered) int { return cmp.Compare(a.sentAt, b.sentAt) })

	seen := make(map[string]struct{}, s.Timeline.Len()+len(entries))
	for _, m := range s.Timeline.Messages() {
		seen[m.Raw().DedupKey(m.SentAt)] = struct{}{}
	}

	out := s
	out.pending = nil
	dropped := 0
	for _, e := range entries {
		key := e.raw.DedupKey(e.sentAt)
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out.Timeline = out.Timeline.AppendLive(e.raw)
	}
	lg := logging.WithRoom("session", s.Room)
	lg.Debug().
		Int("replayed", len(entries)-dropped).
		Int("duplicates", dropped).
		Msg("replayed buffered messages")
	return out
}

func (s State) roomJoined(ev chat.RoomJoined) State {
	if ev.RoomID != "" && ev.RoomID != s.Room {
		return s
	}
	out := s.clone()
	out.RoomName = ev.RoomName
	out.ActiveUsers = slices.Clone(ev.ActiveUsers)
	return out
}

func (s State) presence(ev chat.Presence, joined bool) State {
	if ev.RoomID != s.Room {
		return s
	}
	out := s.clone()
	if ev.ActiveUsers != nil {
		out.ActiveUsers = slices.Clone(ev.ActiveUsers)
	}
	name := strings.TrimSpace(ev.Username)
	switch {
	case !joined:
		return out.withNotice(NoticeLeave, leaveNotice(name))
	case name != s.User:
		return out.withNotice(NoticeJoin, joinNotice(name))
	default:
		return out
	}
}

func logMalformed(room string, raw chat.RawMessage) {
	if raw.HasAuthor() && raw.HasBody() {
		return
	}
	lg := logging.WithRoom("session", room)
	lg.Warn().
		Bool("has_author", raw.HasAuthor()).
		Bool("has_body", raw.HasBody()).
		Msg("malformed message")
}

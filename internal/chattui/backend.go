package chattui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/session"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// RoomService lists and creates rooms.
type RoomService interface {
	Rooms(ctx context.Context) ([]chat.RoomInfo, error)
	CreateRoom(ctx context.Context, roomID, roomName string) (chat.Result, error)
}

// Realtime is the live event channel to the server.
type Realtime interface {
	Events() <-chan chat.Event
	Emit(name string, payload any) error
	Close() error
}

// Transcript records live messages for offline reading.
type Transcript interface {
	Save(ctx context.Context, room string, msgs []timeline.Message) (int, error)
}

type historyLoadedMsg struct {
	req     paging.Request
	page    chat.HistoryPage
	err     error
	initial bool
}

type realtimeMsg struct {
	event chat.Event
}

type realtimeClosedMsg struct{}

type emitFailedMsg struct {
	event string
	err   error
}

type roomsLoadedMsg struct {
	rooms []chat.RoomInfo
	err   error
}

type roomCreatedMsg struct {
	roomID string
	result chat.Result
	err    error
}

type refreshMsg struct {
	now time.Time
}

func (m *Model) runEffects(effects []session.Effect) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, effect := range effects {
		switch typed := effect.(type) {
		case session.FetchHistory:
			cmds = append(cmds, m.fetchCmd(typed))
		case session.Emit:
			cmds = append(cmds, m.emitCmd(typed))
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetchCmd(effect session.FetchHistory) tea.Cmd {
	fetcher := m.session.Options().Paging.Fetcher
	timeout := m.fetchTimeout
	return func() tea.Msg {
		msg := historyLoadedMsg{req: effect.Request, initial: effect.Initial}
		if fetcher == nil {
			msg.err = paging.ErrNoFetcher
			return msg
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		msg.page, msg.err = fetcher.FetchPage(ctx, effect.Request)
		return msg
	}
}

func (m *Model) emitCmd(effect session.Emit) tea.Cmd {
	rt := m.realtime
	return func() tea.Msg {
		if rt == nil {
			return emitFailedMsg{event: effect.Event, err: errOffline}
		}
		if err := rt.Emit(effect.Event, effect.Payload); err != nil {
			return emitFailedMsg{event: effect.Event, err: err}
		}
		return nil
	}
}

func waitForEvent(events <-chan chat.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return realtimeClosedMsg{}
		}
		return realtimeMsg{event: ev}
	}
}

func (m *Model) loadRoomsCmd() tea.Cmd {
	svc := m.rooms
	timeout := m.fetchTimeout
	return func() tea.Msg {
		if svc == nil {
			return roomsLoadedMsg{err: errOffline}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rooms, err := svc.Rooms(ctx)
		return roomsLoadedMsg{rooms: rooms, err: err}
	}
}

func (m *Model) createRoomCmd(roomID, roomName string) tea.Cmd {
	svc := m.rooms
	timeout := m.fetchTimeout
	return func() tea.Msg {
		if svc == nil {
			return roomCreatedMsg{roomID: roomID, err: errOffline}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := svc.CreateRoom(ctx, roomID, roomName)
		return roomCreatedMsg{roomID: roomID, result: result, err: err}
	}
}

func refreshCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return refreshMsg{now: t}
	})
}

func (m *Model) saveLiveCmd(msg timeline.Message) tea.Cmd {
	store := m.transcript
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := store.Save(ctx, msg.RoomID, []timeline.Message{msg}); err != nil {
			m.log.Debug().Err(err).Str("room_id", msg.RoomID).Msg("failed to record live message")
		}
		return nil
	}
}

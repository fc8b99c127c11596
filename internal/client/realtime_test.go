package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/thousandtech/chatroom/internal/chat"
)

type wsServer struct {
	*httptest.Server

	mu       sync.Mutex
	received []chat.Envelope
	conns    []*websocket.Conn
	accepted chan *websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	return startWSServer(t, nil)
}

// startWSServer holds every upgrade until gate is closed, when gate is set.
func startWSServer(t *testing.T, gate <-chan struct{}) *wsServer {
	t.Helper()
	s := &wsServer{accepted: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			<-gate
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.accepted <- conn
		for {
			var env chat.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, env)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.received))
	for _, env := range s.received {
		out = append(out, env.Event)
	}
	return out
}

func nextEvent(t *testing.T, rt *Realtime) chat.Event {
	t.Helper()
	select {
	case ev, ok := <-rt.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return chat.Event{}
	}
}

func TestRealtimeAnnouncesUserAndDeliversEvents(t *testing.T) {
	srv := newWSServer(t)
	rt := Connect(context.Background(), RealtimeConfig{URL: srv.url(), Username: "alice"})
	defer rt.Close()

	require.Equal(t, EventConnected, nextEvent(t, rt).Name)
	conn := <-srv.accepted

	require.NoError(t, rt.Emit(chat.EventJoinRoom, chat.JoinRoom{Username: "alice", RoomID: "general"}))
	require.NoError(t, rt.Emit(chat.EventSendMessage, chat.SendMessage{Msg: "hello"}))
	require.Eventually(t, func() bool { return len(srv.events()) == 3 }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{chat.EventUserLogin, chat.EventJoinRoom, chat.EventSendMessage}, srv.events())

	env, err := chat.NewEnvelope(chat.EventNewMessage, chat.RawMessage{RoomID: "general", Username: "bob", Msg: "hi", TS: chat.Epoch(1700000000)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(chat.Envelope{Event: chat.EventUserLeft, Data: []byte(`{"room_id":"general","username":"bob"}`)}))

	ev := nextEvent(t, rt)
	require.Equal(t, chat.EventNewMessage, ev.Name)
	require.Equal(t, "hi", ev.Message.Msg)

	ev = nextEvent(t, rt)
	require.Equal(t, chat.EventUserLeft, ev.Name)
	require.Equal(t, "bob", ev.Presence.Username)
}

func TestRealtimeReconnectsAndRejoins(t *testing.T) {
	srv := newWSServer(t)
	rt := Connect(context.Background(), RealtimeConfig{
		URL:               srv.url(),
		Username:          "alice",
		ReconnectInterval: 20 * time.Millisecond,
	})
	defer rt.Close()

	require.Equal(t, EventConnected, nextEvent(t, rt).Name)
	first := <-srv.accepted
	require.NoError(t, rt.Emit(chat.EventJoinRoom, chat.JoinRoom{Username: "alice", RoomID: "random"}))
	require.Eventually(t, func() bool { return len(srv.events()) == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Equal(t, EventDisconnected, nextEvent(t, rt).Name)
	require.Equal(t, EventConnected, nextEvent(t, rt).Name)
	<-srv.accepted

	require.Eventually(t, func() bool { return len(srv.events()) == 4 }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{
		chat.EventUserLogin, chat.EventJoinRoom,
		chat.EventUserLogin, chat.EventJoinRoom,
	}, srv.events())
}

func TestRealtimeJoinQueuedWhileConnectingIsSentOnce(t *testing.T) {
	gate := make(chan struct{})
	srv := startWSServer(t, gate)
	rt := Connect(context.Background(), RealtimeConfig{URL: srv.url(), Username: "alice"})
	defer rt.Close()

	require.NoError(t, rt.Emit(chat.EventJoinRoom, chat.JoinRoom{Username: "alice", RoomID: "general"}))
	require.NoError(t, rt.Emit(chat.EventJoinRoom, chat.JoinRoom{Username: "alice", RoomID: "random"}))
	require.NoError(t, rt.Emit(chat.EventSendMessage, chat.SendMessage{Msg: "hello"}))
	close(gate)

	require.Equal(t, EventConnected, nextEvent(t, rt).Name)
	require.Eventually(t, func() bool { return len(srv.events()) >= 3 }, 5*time.Second, 10*time.Millisecond)
	require.Never(t, func() bool { return len(srv.events()) > 3 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, []string{chat.EventUserLogin, chat.EventJoinRoom, chat.EventSendMessage}, srv.events())

	srv.mu.Lock()
	var join chat.JoinRoom
	require.NoError(t, json.Unmarshal(srv.received[1].Data, &join))
	srv.mu.Unlock()
	require.Equal(t, "random", join.RoomID)
}

func TestRealtimeCloseStopsLoop(t *testing.T) {
	srv := newWSServer(t)
	rt := Connect(context.Background(), RealtimeConfig{URL: srv.url(), Username: "alice"})
	require.Equal(t, EventConnected, nextEvent(t, rt).Name)

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
	require.ErrorIs(t, rt.Emit(chat.EventSendMessage, chat.SendMessage{Msg: "late"}), ErrClosed)

	for range rt.Events() {
	}
}

func TestRealtimeRetriesUnreachableServer(t *testing.T) {
	rt := Connect(context.Background(), RealtimeConfig{
		URL:               "ws://127.0.0.1:1/ws",
		Username:          "alice",
		ReconnectInterval: 10 * time.Millisecond,
	})
	require.Equal(t, EventDisconnected, nextEvent(t, rt).Name)
	require.Equal(t, EventDisconnected, nextEvent(t, rt).Name)
	require.NoError(t, rt.Close())
}

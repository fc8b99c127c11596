package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/paging"
)

func TestRooms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rooms", r.URL.Path)
		_, _ = w.Write([]byte(`[{"room_id":"general","room_name":"General","user_count":2,"active_users":["a","b"],"message_count":10}]`))
	}))
	defer srv.Close()

	rooms, err := New(srv.URL, 0).Rooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "General", rooms[0].DisplayName())
	require.Equal(t, 2, rooms[0].UserCount)
}

func TestHistoryBothShapes(t *testing.T) {
	var bare bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rooms/general/messages", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("limit"))
		require.Equal(t, "4", r.URL.Query().Get("offset"))
		if bare {
			_, _ = w.Write([]byte(`[{"username":"a","msg":"1","ts":1700000000},{"username":"b","msg":"2","ts":1700000001}]`))
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"username":"a","msg":"1","timestamp":"2025-05-22 18:52:37"}],"has_more":false}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	page, err := c.History(context.Background(), "general", 2, 4)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	require.False(t, page.HasMore)
	require.Equal(t, "2025-05-22 18:52:37", page.Messages[0].Timestamp)

	bare = true
	page, err = c.FetchPage(context.Background(), paging.Request{RoomID: "general", Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	require.True(t, page.HasMore, "full bare page implies more")
}

func TestHistoryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rooms/missing/messages":
			http.NotFound(w, r)
		case "/rooms/broken/messages":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"database is locked"}`))
		default:
			_, _ = w.Write([]byte(`"nope"`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.History(context.Background(), "missing", 50, 0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.History(context.Background(), "broken", 50, 0)
	require.ErrorContains(t, err, "database is locked")

	_, err = c.History(context.Background(), "garbage", 50, 0)
	require.Error(t, err)
}

func TestLoginAndRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds chat.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password == "right" {
			_, _ = w.Write([]byte(`{"success":true,"msg":"ok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"msg":"用户名或密码错误"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	res, err := c.Login(context.Background(), chat.Credentials{Username: " alice ", Password: "right"})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = c.Register(context.Background(), chat.Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrRejected)
	require.Equal(t, "用户名或密码错误", res.Msg)

	_, err = c.Login(context.Background(), chat.Credentials{Username: "", Password: "x"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrRejected))
}

func TestCreateRoomValidatesID(t *testing.T) {
	var got chat.NewRoom
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.CreateRoom(context.Background(), "bad id!", "Bad")
	require.ErrorIs(t, err, ErrInvalidRoomID)

	_, err = c.CreateRoom(context.Background(), "go-dev_2", "Go Dev")
	require.NoError(t, err)
	require.Equal(t, chat.NewRoom{RoomID: "go-dev_2", RoomName: "Go Dev"}, got)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base, path, want string
		wantErr          bool
	}{
		{base: "http://localhost:5000", path: "/ws", want: "ws://localhost:5000/ws"},
		{base: "https://chat.example.com/", path: "socket", want: "wss://chat.example.com/socket"},
		{base: "http://host/app", path: "", want: "ws://host/app/ws"},
		{base: "ftp://host", path: "/ws", wantErr: true},
	}
	for _, tt := range tests {
		got, err := WebsocketURL(tt.base, tt.path)
		if tt.wantErr {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

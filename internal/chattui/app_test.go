package chattui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/chattui/state"
	"github.com/thousandtech/chatroom/internal/client"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/session"
	"github.com/thousandtech/chatroom/internal/timeline"
)

var (
	testZone = time.FixedZone("CST", 8*60*60)
	testNow  = time.Date(2025, 5, 22, 20, 0, 0, 0, testZone)
)

func rawAt(room, author, body string, epoch int64) chat.RawMessage {
	return chat.RawMessage{RoomID: room, Username: author, Msg: body, TS: chat.Epoch(epoch)}
}

// fakeServer serves history with the server's offset semantics: offset counts
// back from the newest message.
type fakeServer struct {
	mu      sync.Mutex
	history map[string][]chat.RawMessage
	fail    map[string]error
	calls   []paging.Request
	rooms   []chat.RoomInfo
	created []string
	// bare reports has_more the way the bare-array response shape does.
	bare bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{history: map[string][]chat.RawMessage{}, fail: map[string]error{}}
}

func (f *fakeServer) seed(room string, n int, start int64, step int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.history[room] = append(f.history[room], rawAt(room, "bob", fmt.Sprintf("%s-%d", room, i), start+int64(i)*step))
	}
}

func (f *fakeServer) FetchPage(_ context.Context, req paging.Request) (chat.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.fail[req.RoomID]; err != nil {
		return chat.HistoryPage{}, err
	}
	all := f.history[req.RoomID]
	end := len(all) - req.Offset
	if end <= 0 {
		return chat.HistoryPage{}, nil
	}
	start := end - req.Limit
	if start < 0 {
		start = 0
	}
	page := chat.HistoryPage{HasMore: start > 0}
	for _, raw := range all[start:end] {
		page.Messages = append(page.Messages, raw.Clone())
	}
	if f.bare {
		page.HasMore = len(page.Messages) == req.Limit
	}
	return page, nil
}

func (f *fakeServer) Rooms(context.Context) ([]chat.RoomInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.RoomInfo(nil), f.rooms...), nil
}

func (f *fakeServer) CreateRoom(_ context.Context, roomID, roomName string) (chat.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, roomID)
	f.rooms = append(f.rooms, chat.RoomInfo{RoomID: roomID, RoomName: roomName})
	return chat.Result{Success: true, Msg: "房间创建成功"}, nil
}

func (f *fakeServer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRealtime struct {
	mu      sync.Mutex
	events  chan chat.Event
	emitted []session.Emit
	closed  bool
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{events: make(chan chat.Event, 16)}
}

func (r *fakeRealtime) Events() <-chan chat.Event { return r.events }

func (r *fakeRealtime) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted = append(r.emitted, session.Emit{Event: name, Payload: payload})
	return nil
}

func (r *fakeRealtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRealtime) sent() []session.Emit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Emit(nil), r.emitted...)
}

type fakeTranscript struct {
	mu    sync.Mutex
	saved []timeline.Message
}

func (f *fakeTranscript) Save(_ context.Context, _ string, msgs []timeline.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, msgs...)
	return len(msgs), nil
}

type testEnv struct {
	model    *Model
	server   *fakeServer
	realtime *fakeRealtime
	state    *state.Manager
}

func newTestEnv(t *testing.T, mutate func(*Config)) testEnv {
	t.Helper()
	server := newFakeServer()
	rt := newFakeRealtime()
	mgr := state.New("")
	cfg := Config{
		User:       "alice",
		Normalizer: timeline.Normalizer{Zone: testZone, Now: func() time.Time { return testNow }},
		Paging:     paging.NewController(server),
		Rooms:      server,
		Realtime:   rt,
		State:      mgr,
		Now:        func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	model, err := NewModel(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, model.Close())
	})
	model = applyUpdate(t, model, tea.WindowSizeMsg{Width: 100, Height: 14})
	return testEnv{model: model, server: server, realtime: rt, state: mgr}
}

func TestNewModelRejectsInvalidTheme(t *testing.T) {
	_, err := NewModel(Config{Theme: "matrix"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid theme")
}

func TestNewModelDefaults(t *testing.T) {
	mgr := state.New("")
	mgr.VisitRoom("random")
	model, err := NewModel(Config{User: " alice ", State: mgr})
	require.NoError(t, err)

	require.Equal(t, ThemeDefault, model.theme)
	require.Equal(t, defaultRefreshInterval, model.refreshInterval)
	require.Equal(t, "alice", model.session.User)
	require.Equal(t, "random", model.initialRoom)
	require.Equal(t, connOffline, model.conn)
}

func TestInitialHistoryThenJoin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("general", 3, 1700000000, 60)

	model := runCmd(t, env.model, env.model.switchRoom(""))

	require.Equal(t, "general", model.session.Room)
	require.True(t, model.session.HistoryReady)
	require.Len(t, model.session.Timeline.Messages(), 3)
	require.Equal(t, 1, env.server.callCount())

	sent := env.realtime.sent()
	require.Len(t, sent, 1)
	require.Equal(t, chat.EventJoinRoom, sent[0].Event)
	require.Equal(t, chat.JoinRoom{Username: "alice", RoomID: "general"}, sent[0].Payload)
}

func TestLiveMessageBeforeHistoryIsReplayed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("general", 2, 1700000000, 60)

	fetch := env.model.switchRoom("general")
	model := applyUpdate(t, env.model, realtimeMsg{event: chat.Event{
		Name:    chat.EventNewMessage,
		Message: ptr(rawAt("general", "carol", "early", 1700000500)),
	}})
	require.Equal(t, 0, model.session.Timeline.Len())

	model = runCmd(t, model, fetch)
	msgs := model.session.Timeline.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "early", msgs[2].Body)
}

func TestStaleHistoryIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("a", 2, 1700000000, 60)
	env.server.seed("b", 4, 1700000000, 60)

	first := env.model.switchRoom("a")
	second := env.model.switchRoom("b")

	model := runCmd(t, env.model, second)
	model = runCmd(t, model, first)

	require.Equal(t, "b", model.session.Room)
	msgs := model.session.Timeline.Messages()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		require.True(t, strings.HasPrefix(m.Body, "b-"), m.Body)
	}
}

func TestScrollToTopLoadsOlderAndKeepsTopItem(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("general", 120, 1700000000, 120)
	model := runCmd(t, env.model, env.model.switchRoom("general"))
	require.Len(t, model.session.Timeline.Messages(), 50)
	require.True(t, model.pane.follow)

	before := model.session.Timeline
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyHome})
	model = next.(*Model)
	require.True(t, model.pane.atTop())
	require.True(t, model.session.Loading())
	anchorID, _ := model.pane.topAnchor()

	model = runCmd(t, model, cmd)
	require.False(t, model.session.Loading())
	require.Len(t, model.session.Timeline.Messages(), 100)
	require.Equal(t, 100, model.session.Cursor.Offset)

	want := timeline.Anchor(before, model.session.Timeline, anchorID)
	require.NotZero(t, want)
	require.Equal(t, want, model.pane.rows[model.pane.top].itemID)
	require.False(t, model.pane.follow)
	require.Greater(t, model.pane.top, 0)
}

func TestOlderHistoryExhaustedShowsStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.bare = true
	env.server.seed("general", 50, 1700000000, 60)
	model := runCmd(t, env.model, env.model.switchRoom("general"))
	require.True(t, model.session.Cursor.HasMore)

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyHome})
	require.False(t, model.session.Cursor.HasMore)
	require.Equal(t, "no older messages", model.status)

	calls := env.server.callCount()
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyPgUp})
	require.Equal(t, calls, env.server.callCount())
}

func TestNewMessagesWhileScrolledUpAreCounted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("general", 50, 1700000000, 60)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	require.False(t, model.pane.follow)
	top := model.pane.top

	model = applyUpdate(t, model, realtimeMsg{event: chat.Event{
		Name:    chat.EventNewMessage,
		Message: ptr(rawAt("general", "carol", "hi", 1700009000)),
	}})
	require.Equal(t, top, model.pane.top)
	require.Equal(t, 1, model.pane.unseen)
	require.Contains(t, model.pane.view(), "1 new message")

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnd})
	require.True(t, model.pane.follow)
	require.Zero(t, model.pane.unseen)
}

func TestSendRejectsBlankMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model.input.SetValue("   ")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.ErrBlankMessage.Error(), model.status)
	require.True(t, model.statusErr)
	require.Len(t, env.realtime.sent(), 1) // join only
}

func TestSendEmitsMessageAndClearsDraft(t *testing.T) {
	env := newTestEnv(t, nil)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model.input.SetValue("hello https://example.com")
	model.saveDraft()
	_, ok := env.state.Draft("general")
	require.True(t, ok)

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	sent := env.realtime.sent()
	require.Len(t, sent, 2)
	require.Equal(t, chat.EventSendMessage, sent[1].Event)
	require.Equal(t, chat.SendMessage{Msg: "hello https://example.com"}, sent[1].Payload)
	require.Empty(t, model.input.Value())
	_, ok = env.state.Draft("general")
	require.False(t, ok)
}

func TestReadOnlyWithoutUser(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.User = "" })
	env.server.seed("general", 1, 1700000000, 60)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	require.Empty(t, env.realtime.sent())
	require.Contains(t, model.renderCompose(), "read only")

	model.input.SetValue("hi")
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.ErrNotLoggedIn.Error(), model.status)
}

func TestDraftsFollowRooms(t *testing.T) {
	env := newTestEnv(t, nil)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model.input.SetValue("half written")
	model = runCmd(t, model, model.switchRoom("random"))
	require.Empty(t, model.input.Value())

	model = runCmd(t, model, model.switchRoom("general"))
	require.Equal(t, "half written", model.input.Value())
	require.Equal(t, []string{"general", "random"}, env.state.RecentRooms())
}

func TestPresenceAndConnectionEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model = applyUpdate(t, model, realtimeMsg{event: chat.Event{Name: client.EventConnected}})
	require.Equal(t, connOnline, model.conn)
	require.Contains(t, model.renderHeader(), "online")

	model = applyUpdate(t, model, realtimeMsg{event: chat.Event{
		Name:     chat.EventUserJoined,
		Presence: &chat.Presence{RoomID: "general", Username: "bob", ActiveUsers: []string{"alice", "bob"}},
	}})
	require.Equal(t, []string{"alice", "bob"}, model.session.ActiveUsers)
	require.Contains(t, model.renderStatus(), "bob 加入了聊天室")

	model = applyUpdate(t, model, realtimeMsg{event: chat.Event{Name: client.EventDisconnected}})
	require.Equal(t, connConnecting, model.conn)

	model = applyUpdate(t, model, realtimeClosedMsg{})
	require.Equal(t, connOffline, model.conn)
}

func TestLiveMessagesAreRecorded(t *testing.T) {
	transcript := &fakeTranscript{}
	env := newTestEnv(t, func(cfg *Config) { cfg.Transcript = transcript })
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model = applyUpdateWithCmd(t, model, realtimeMsg{event: chat.Event{
		Name:    chat.EventNewMessage,
		Message: ptr(rawAt("general", "carol", "hi", 1700009000)),
	}})
	require.Len(t, model.session.Timeline.Messages(), 1)

	transcript.mu.Lock()
	defer transcript.mu.Unlock()
	require.Len(t, transcript.saved, 1)
	require.Equal(t, "hi", transcript.saved[0].Body)
}

func TestRoomPickerSelectAndCreate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.rooms = []chat.RoomInfo{
		{RoomID: "general", RoomName: "General", UserCount: 2},
		{RoomID: "random", RoomName: "Random"},
	}
	model := runCmd(t, env.model, env.model.switchRoom("general"))

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, model.picker.open)
	require.Len(t, model.picker.rooms, 2)
	require.Equal(t, "general", model.picker.rooms[model.picker.selected].RoomID)
	require.Contains(t, model.View(), "Random")

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.True(t, model.picker.creating)
	model.picker.input.SetValue("bad!room Bad")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotEmpty(t, model.picker.err)
	require.Empty(t, env.server.created)

	model.picker.input.SetValue("dev-room Dev Room")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"dev-room"}, env.server.created)
	require.False(t, model.picker.open)
	require.Equal(t, "dev-room", model.session.Room)

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyTab})
	model = applyUpdate(t, model, runeKey('j'))
	selected := model.picker.rooms[model.picker.selected].RoomID
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, selected, model.session.Room)
}

func TestToggleUsersPersistsPreference(t *testing.T) {
	env := newTestEnv(t, nil)
	model := applyUpdate(t, env.model, tea.KeyMsg{Type: tea.KeyCtrlU})
	require.True(t, model.showUsers)
	require.True(t, env.state.Preferences().ShowUserList)
	require.Less(t, model.pane.width, model.width)
}

func TestHelpToggle(t *testing.T) {
	env := newTestEnv(t, nil)
	model := applyUpdate(t, env.model, tea.KeyMsg{Type: tea.KeyF1})
	require.True(t, model.showHelp)
	require.Contains(t, model.View(), "Help")
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, model.showHelp)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestRefreshRelabelsDividers(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.seed("general", 1, testNow.Add(-time.Hour).Unix(), 60)
	model := runCmd(t, env.model, env.model.switchRoom("general"))
	require.Contains(t, model.pane.view(), "19:00")
	require.NotContains(t, model.pane.view(), "周四")

	model = applyUpdate(t, model, refreshMsg{now: testNow.Add(24 * time.Hour)})
	require.Contains(t, model.pane.view(), "周四 19:00")
}

func TestCloseSavesDraftAndClosesRealtime(t *testing.T) {
	env := newTestEnv(t, nil)
	model := runCmd(t, env.model, env.model.switchRoom("general"))
	model.input.SetValue("unsent")
	require.NoError(t, model.Close())

	draft, ok := env.state.Draft("general")
	require.True(t, ok)
	require.Equal(t, "unsent", draft.Body)
	require.True(t, env.realtime.closed)
}

func ptr[T any](v T) *T { return &v }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{
		Type:  tea.KeyRunes,
		Runes: []rune{r},
	}
}

func applyUpdate(t *testing.T, model *Model, msg tea.Msg) *Model {
	t.Helper()
	next, _ := model.Update(msg)
	out, ok := next.(*Model)
	require.True(t, ok)
	return out
}

func applyUpdateWithCmd(t *testing.T, model *Model, msg tea.Msg) *Model {
	t.Helper()
	next, cmd := model.Update(msg)
	out, ok := next.(*Model)
	require.True(t, ok)
	if cmd == nil {
		return out
	}
	return runCmd(t, out, cmd)
}

func runCmd(t *testing.T, model *Model, cmd tea.Cmd) *Model {
	t.Helper()
	return runCmdDepth(t, model, cmd, 0)
}

const maxRunCmdDepth = 8

func runCmdDepth(t *testing.T, model *Model, cmd tea.Cmd, depth int) *Model {
	t.Helper()
	if cmd == nil || depth >= maxRunCmdDepth {
		return model
	}

	// Blocking commands (ticks, realtime waits) are skipped after a short timeout.
	type result struct{ msg tea.Msg }
	ch := make(chan result, 1)
	go func() { ch <- result{cmd()} }()
	select {
	case r := <-ch:
		switch typed := r.msg.(type) {
		case nil:
			return model
		case tea.BatchMsg:
			out := model
			for _, sub := range typed {
				out = runCmdDepth(t, out, sub, depth+1)
			}
			return out
		default:
			next, nextCmd := model.Update(typed)
			out, ok := next.(*Model)
			require.True(t, ok)
			return runCmdDepth(t, out, nextCmd, depth+1)
		}
	case <-time.After(50 * time.Millisecond):
		return model
	}
}

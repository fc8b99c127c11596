// Package chattui is the bubbletea terminal UI of the chat client.
package chattui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/client"
	"github.com/thousandtech/chatroom/internal/chattui/state"
	"github.com/thousandtech/chatroom/internal/chattui/styles"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/session"
	"github.com/thousandtech/chatroom/internal/timeline"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultFetchTimeout    = 10 * time.Second
	maxMessageLength       = 2000

	// header, status, compose and footer lines
	chromeHeight = 4
)

var errOffline = errors.New("not connected")

type Theme string

const (
	ThemeDefault      Theme = "default"
	ThemeHighContrast Theme = "high-contrast"
)

type connState int

const (
	connConnecting connState = iota
	connOnline
	connOffline
)

type Config struct {
	User  string
	Room  string // falls back to the last visited room, then the default room
	Theme string

	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	Normalizer timeline.Normalizer
	Paging     paging.Controller

	Rooms      RoomService
	Realtime   Realtime
	Transcript Transcript
	State      *state.Manager

	Now func() time.Time
}

type Model struct {
	session    session.State
	rooms      RoomService
	realtime   Realtime
	transcript Transcript
	tuiState   *state.Manager

	theme           Theme
	palette         styles.Theme
	msgStyles       styles.MessageStyles
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	now             func() time.Time
	initialRoom     string
	log             zerolog.Logger

	width     int
	height    int
	showHelp  bool
	showUsers bool
	conn      connState

	input  textinput.Model
	pane   *timelinePane
	picker *roomPicker

	status    string
	statusErr bool
}

func NewModel(cfg Config) (*Model, error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	palette := styles.ThemeByName(normalized.Theme)
	msgStyles := styles.NewMessageStyles(palette, nil)

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message"
	input.CharLimit = maxMessageLength
	input.Focus()

	m := &Model{
		session: session.New(session.Options{
			User:       normalized.User,
			Normalizer: normalized.Normalizer,
			Paging:     normalized.Paging,
			Now:        normalized.Now,
		}),
		rooms:           normalized.Rooms,
		realtime:        normalized.Realtime,
		transcript:      normalized.Transcript,
		tuiState:        normalized.State,
		theme:           Theme(normalized.Theme),
		palette:         palette,
		msgStyles:       msgStyles,
		refreshInterval: normalized.RefreshInterval,
		fetchTimeout:    normalized.FetchTimeout,
		now:             normalized.Now,
		initialRoom:     normalized.Room,
		log:             logging.WithUser("tui", normalized.User),
		input:           input,
		pane:            newTimelinePane(msgStyles),
		picker:          newRoomPicker(),
	}
	if m.realtime == nil {
		m.conn = connOffline
	}
	if m.tuiState != nil {
		m.showUsers = m.tuiState.Preferences().ShowUserList
		if m.initialRoom == "" {
			m.initialRoom = m.tuiState.LastRoom()
		}
	}
	m.pane.now = m.now()
	return m, nil
}

func Run(cfg Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// Close saves the draft of the current room and releases the realtime channel.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.saveDraft()
	if m.tuiState != nil {
		if err := m.tuiState.Close(); err != nil {
			m.log.Warn().Err(err).Msg("failed to save tui state")
		}
	}
	if m.realtime == nil {
		return nil
	}
	return m.realtime.Close()
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.switchRoom(m.initialRoom),
		refreshCmd(m.refreshInterval),
		textinput.Blink,
	}
	if m.realtime != nil {
		cmds = append(cmds, waitForEvent(m.realtime.Events()))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.layout()
		return m, nil
	case historyLoadedMsg:
		return m, m.applyHistory(typed)
	case realtimeMsg:
		return m, m.applyEvent(typed.event)
	case realtimeClosedMsg:
		m.conn = connOffline
		return m, nil
	case emitFailedMsg:
		m.log.Warn().Err(typed.err).Str("event", typed.event).Msg("emit failed")
		m.setStatus(fmt.Sprintf("could not send %s: %v", typed.event, typed.err), true)
		return m, nil
	case roomsLoadedMsg:
		m.picker.setRooms(typed.rooms, m.recentRooms(), m.session.Room, typed.err)
		return m, nil
	case roomCreatedMsg:
		return m, m.applyRoomCreated(typed)
	case refreshMsg:
		m.pane.setNow(typed.now)
		return m, refreshCmd(m.refreshInterval)
	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(typed); handled {
			return m, cmd
		}
		if m.picker.open {
			return m, m.handlePickerKey(typed)
		}
		if cmd, handled := m.handleTimelineKey(typed); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	header := m.renderHeader()
	status := m.renderStatus()
	compose := m.renderCompose()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(compose) - lipgloss.Height(footer)
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	var body string
	switch {
	case m.showHelp:
		body = m.renderHelpOverlay(m.width, bodyHeight)
	case m.picker.open:
		body = m.picker.view(m.width, bodyHeight, m.palette)
	default:
		body = m.renderBody(bodyHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, compose, footer)
}

func (m *Model) renderBody(height int) string {
	widths := styles.ComputeColumnWidths(m.width, m.showUsers)
	timelineView := m.pane.view()
	if widths.Users == 0 {
		return timelineView
	}
	users := m.renderUserList(widths.Users, height)
	gap := strings.Repeat(" ", styles.LayoutGap)
	return lipgloss.JoinHorizontal(lipgloss.Top, timelineView, gap, users)
}

func (m *Model) layout() {
	height := m.height - chromeHeight
	if height < 0 {
		height = 0
	}
	widths := styles.ComputeColumnWidths(m.width, m.showUsers)
	m.pane.resize(widths.Timeline, height)
	inputWidth := m.width - lipgloss.Width(m.input.Prompt) - 1
	if inputWidth < 1 {
		inputWidth = 1
	}
	m.input.Width = inputWidth
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	case "f1":
		m.showHelp = !m.showHelp
		return nil, true
	case "esc":
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}
	case "tab":
		if m.picker.open {
			m.picker.close()
			return nil, true
		}
		m.picker.show()
		return m.loadRoomsCmd(), true
	case "ctrl+u":
		m.showUsers = !m.showUsers
		if m.tuiState != nil {
			prefs := m.tuiState.Preferences()
			prefs.ShowUserList = m.showUsers
			m.tuiState.SetPreferences(prefs)
		}
		m.layout()
		return nil, true
	}
	return nil, false
}

func (m *Model) handleTimelineKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "up":
		return m.scroll(-1), true
	case "down":
		return m.scroll(1), true
	case "pgup":
		return m.scroll(-m.pane.page()), true
	case "pgdown":
		return m.scroll(m.pane.page()), true
	case "home":
		return m.scroll(-len(m.pane.rows)), true
	case "end":
		m.pane.scrollToBottom()
		return nil, true
	case "enter":
		return m.send(), true
	}
	return nil, false
}

// scroll moves the timeline; reaching the top asks for the next older page.
func (m *Model) scroll(delta int) tea.Cmd {
	if !m.pane.scroll(delta) || delta > 0 {
		return nil
	}
	next, effects := m.session.LoadOlder()
	m.session = next
	return m.runEffects(effects)
}

func (m *Model) send() tea.Cmd {
	emit, err := m.session.Compose(m.input.Value())
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.input.Reset()
	if m.tuiState != nil {
		m.tuiState.DeleteDraft(m.session.Room)
	}
	m.setStatus("", false)
	m.pane.scrollToBottom()
	return m.emitCmd(emit)
}

func (m *Model) switchRoom(room string) tea.Cmd {
	m.saveDraft()
	next, effects := m.session.SwitchRoom(room)
	m.session = next
	m.pane.setTimeline(next.Timeline)
	m.setStatus("", false)

	m.input.Reset()
	if m.tuiState != nil {
		m.tuiState.VisitRoom(next.Room)
		if draft, ok := m.tuiState.Draft(next.Room); ok {
			m.input.SetValue(draft.Body)
			m.input.CursorEnd()
		}
	}
	return m.runEffects(effects)
}

func (m *Model) saveDraft() {
	if m.tuiState == nil || m.session.Room == "" {
		return
	}
	m.tuiState.SetDraft(state.Draft{Room: m.session.Room, Body: m.input.Value()})
}

func (m *Model) applyHistory(msg historyLoadedMsg) tea.Cmd {
	if msg.initial {
		next, effects, outcome := m.session.HistoryLoaded(msg.req, msg.page, msg.err)
		if outcome == paging.OutcomeStale {
			return nil
		}
		m.setSession(next)
		return m.runEffects(effects)
	}

	next, outcome := m.session.OlderLoaded(msg.req, msg.page, msg.err)
	switch outcome {
	case paging.OutcomeStale:
		return nil
	case paging.OutcomeFailed:
		m.setStatus("could not load older messages", true)
	case paging.OutcomeExhausted:
		m.setStatus("no older messages", false)
	}
	m.setSession(next)
	return nil
}

func (m *Model) applyEvent(ev chat.Event) tea.Cmd {
	wait := waitForEvent(m.realtime.Events())
	switch ev.Name {
	case client.EventConnected:
		m.conn = connOnline
		return wait
	case client.EventDisconnected:
		m.conn = connConnecting
		return wait
	}

	prev := m.session
	m.setSession(prev.Handle(ev))

	var save tea.Cmd
	if ev.Name == chat.EventNewMessage && m.session.Timeline.Len() != prev.Timeline.Len() {
		if last, ok := m.session.Timeline.Last(); ok {
			save = m.saveLiveCmd(last)
		}
	}
	return tea.Batch(wait, save)
}

func (m *Model) applyRoomCreated(msg roomCreatedMsg) tea.Cmd {
	if msg.err != nil {
		m.picker.fail(msg.err.Error())
		return nil
	}
	if !msg.result.Success {
		m.picker.fail(msg.result.Msg)
		return nil
	}
	m.picker.close()
	return tea.Batch(m.switchRoom(msg.roomID), m.loadRoomsCmd())
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	action := m.picker.update(msg)
	switch action.kind {
	case pickerSelect:
		m.picker.close()
		if action.roomID == m.session.Room {
			return nil
		}
		return m.switchRoom(action.roomID)
	case pickerCreate:
		return m.createRoomCmd(action.roomID, action.roomName)
	case pickerPassthrough:
		return action.cmd
	}
	return nil
}

func (m *Model) setSession(next session.State) {
	m.session = next
	m.pane.setTimeline(next.Timeline)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) recentRooms() []string {
	if m.tuiState == nil {
		return nil
	}
	return m.tuiState.RecentRooms()
}

func (c Config) normalize() (Config, error) {
	c.User = strings.TrimSpace(c.User)
	c.Room = strings.TrimSpace(c.Room)
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Normalizer.Zone == nil {
		c.Normalizer.Zone = timeline.LoadZone("")
	}
	if c.Normalizer.Now == nil {
		c.Normalizer.Now = c.Now
	}
	if strings.TrimSpace(c.Theme) == "" {
		c.Theme = string(ThemeDefault)
	}
	switch Theme(c.Theme) {
	case ThemeDefault, ThemeHighContrast:
	default:
		return Config{}, fmt.Errorf("invalid theme %q", c.Theme)
	}
	return c, nil
}

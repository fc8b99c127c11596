package chattui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/chattui/styles"
	"github.com/thousandtech/chatroom/internal/client"
)

type pickerActionKind int

const (
	pickerNone pickerActionKind = iota
	pickerSelect
	pickerCreate
	pickerPassthrough
)

type pickerAction struct {
	kind     pickerActionKind
	roomID   string
	roomName string
	cmd      tea.Cmd
}

// roomPicker lists rooms with recently visited ones first. ctrl+n switches to
// a one-line "id name" form that creates a room.
type roomPicker struct {
	open     bool
	loading  bool
	rooms    []chat.RoomInfo
	current  string
	selected int
	err      string

	creating bool
	input    textinput.Model
}

func newRoomPicker() *roomPicker {
	input := textinput.New()
	input.Prompt = "new room> "
	input.Placeholder = "room-id Room Name"
	input.CharLimit = 64
	return &roomPicker{input: input}
}

func (p *roomPicker) show() {
	p.open = true
	p.loading = true
	p.err = ""
	p.creating = false
	p.input.Reset()
	p.input.Blur()
}

func (p *roomPicker) close() {
	p.open = false
	p.creating = false
	p.input.Blur()
}

func (p *roomPicker) fail(msg string) {
	p.err = strings.TrimSpace(msg)
	if p.err == "" {
		p.err = "request failed"
	}
}

// setRooms orders rooms with recently visited ones first, most recent first,
// and selects the current room.
func (p *roomPicker) setRooms(rooms []chat.RoomInfo, recent []string, current string, err error) {
	p.loading = false
	p.current = current
	if err != nil {
		p.fail(err.Error())
	}
	if rooms == nil && err != nil {
		return
	}

	byID := make(map[string]chat.RoomInfo, len(rooms))
	for _, room := range rooms {
		byID[room.RoomID] = room
	}
	ordered := make([]chat.RoomInfo, 0, len(rooms))
	used := make(map[string]bool, len(rooms))
	for _, id := range recent {
		if room, ok := byID[id]; ok && !used[id] {
			ordered = append(ordered, room)
			used[id] = true
		}
	}
	for _, room := range rooms {
		if !used[room.RoomID] {
			ordered = append(ordered, room)
			used[room.RoomID] = true
		}
	}
	p.rooms = ordered
	p.selected = 0
	for i, room := range ordered {
		if room.RoomID == current {
			p.selected = i
			break
		}
	}
}

func (p *roomPicker) update(msg tea.KeyMsg) pickerAction {
	if p.creating {
		return p.updateCreate(msg)
	}
	switch msg.String() {
	case "esc":
		p.close()
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.selected < len(p.rooms)-1 {
			p.selected++
		}
	case "enter":
		if p.selected >= 0 && p.selected < len(p.rooms) {
			return pickerAction{kind: pickerSelect, roomID: p.rooms[p.selected].RoomID}
		}
	case "ctrl+n":
		p.creating = true
		p.err = ""
		return pickerAction{kind: pickerPassthrough, cmd: p.input.Focus()}
	}
	return pickerAction{}
}

func (p *roomPicker) updateCreate(msg tea.KeyMsg) pickerAction {
	switch msg.String() {
	case "esc":
		p.creating = false
		p.input.Blur()
		return pickerAction{}
	case "enter":
		id, name := parseNewRoom(p.input.Value())
		if id == "" {
			p.fail("enter a room id")
			return pickerAction{}
		}
		if err := client.ValidateRoomID(id); err != nil {
			p.fail(err.Error())
			return pickerAction{}
		}
		p.err = ""
		return pickerAction{kind: pickerCreate, roomID: id, roomName: name}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return pickerAction{kind: pickerPassthrough, cmd: cmd}
}

// parseNewRoom splits "id name words" input. The name defaults to the id.
func parseNewRoom(value string) (string, string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	id := fields[0]
	name := strings.Join(fields[1:], " ")
	if name == "" {
		name = id
	}
	return id, name
}

func (p *roomPicker) view(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := make([]string, 0, height)
	lines = append(lines, theme.HeaderStyle().Render("Rooms"), "")

	switch {
	case p.loading:
		lines = append(lines, theme.MutedStyle().Render("loading rooms..."))
	case len(p.rooms) == 0:
		lines = append(lines, theme.MutedStyle().Render("no rooms"))
	}
	for i, room := range p.rooms {
		cursor := " "
		if i == p.selected && !p.creating {
			cursor = theme.SelectedStyle().Render("›")
		}
		marker := " "
		if room.RoomID == p.current {
			marker = "●"
		}
		counts := theme.MutedStyle().Render(fmt.Sprintf("%d online · %d messages", room.UserCount, room.MessageCount))
		lines = append(lines, fmt.Sprintf("%s%s %-16s %s  %s", cursor, marker, room.RoomID, room.DisplayName(), counts))
	}

	lines = append(lines, "")
	if p.creating {
		lines = append(lines, p.input.View())
	} else {
		lines = append(lines, theme.MutedStyle().Render("enter join · ctrl+n new room · esc close"))
	}
	if p.err != "" {
		lines = append(lines, theme.ErrorStyle().Render(p.err))
	}

	panel := styles.PanelStyle(theme, true).Padding(0, 1).Width(maxInt(0, width-2))
	return lipgloss.NewStyle().MaxHeight(height).Render(panel.Render(strings.Join(lines, "\n")))
}

package chattui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpItem struct {
	key  string
	desc string
}

var helpItems = []helpItem{
	{key: "enter", desc: "send message"},
	{key: "up / down", desc: "scroll one line"},
	{key: "pgup / pgdn", desc: "scroll one page, older history loads at the top"},
	{key: "home / end", desc: "oldest loaded / newest message"},
	{key: "tab", desc: "room list (ctrl+n creates a room)"},
	{key: "ctrl+u", desc: "toggle online users"},
	{key: "f1 / esc", desc: "toggle help"},
	{key: "ctrl+c", desc: "quit"},
}

func (m *Model) renderHelpOverlay(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := make([]string, 0, len(helpItems)+4)
	lines = append(lines, m.palette.HeaderStyle().Render("Help"), "")
	keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.palette.Base.Accent)).Width(12)
	for _, it := range helpItems {
		lines = append(lines, "  "+keyStyle.Render(it.key)+"  "+it.desc)
	}
	lines = append(lines, "", m.palette.MutedStyle().Render("Dismiss: f1 or esc"))

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.palette.Base.Border)).
		Padding(1, 2).
		Width(minInt(maxInt(40, width-10), 80))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel.Render(strings.Join(lines, "\n")))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

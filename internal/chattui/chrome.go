package chattui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/thousandtech/chatroom/internal/session"
)

func (m *Model) renderHeader() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.palette.Base.Foreground)).
		Background(lipgloss.Color(m.palette.Chrome.Header)).
		Bold(true).
		Padding(0, 1)

	left := "chatroom"
	center := ""
	if room := m.session.Room; room != "" {
		center = "#" + room
		if name := strings.TrimSpace(m.session.RoomName); name != "" && name != room {
			center += " " + name
		}
		if n := len(m.session.ActiveUsers); n > 0 {
			center += fmt.Sprintf(" (%d online)", n)
		}
	}
	user := m.session.User
	if user == "" {
		user = "guest"
	}
	right := user + "  " + m.connectionLabel()
	line := joinHeader(left, center, right, maxInt(0, m.width-2))
	return style.Width(maxInt(0, m.width)).Render(line)
}

func (m *Model) connectionLabel() string {
	switch m.conn {
	case connOnline:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Connection.Online)).Render("● online")
	case connConnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Connection.Connecting)).Render("○ connecting")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Connection.Offline)).Render("○ offline")
	}
}

// renderStatus shows, in order of priority: a local status message, history
// loading state, and the newest notice.
func (m *Model) renderStatus() string {
	width := maxInt(0, m.width)
	text := ""
	style := m.palette.MutedStyle()
	switch {
	case m.status != "":
		text = m.status
		if m.statusErr {
			style = m.palette.ErrorStyle()
		}
	case m.session.Room != "" && !m.session.HistoryReady:
		text = "loading history..."
	case m.session.Loading():
		text = "loading older messages..."
	case m.session.HistoryFailed && m.session.Timeline.Len() == 0:
		text = "加载历史消息失败"
		style = m.palette.ErrorStyle()
	default:
		if notice, ok := m.session.LastNotice(); ok && notice.Room == m.session.Room {
			return truncateVis(m.msgStyles.RenderNotice(notice.Text, notice.Kind == session.NoticeError), width)
		}
	}
	return style.Render(truncateVis(text, width))
}

func (m *Model) renderCompose() string {
	if m.session.User == "" {
		return m.palette.MutedStyle().Render(truncateVis("read only: log in with `chatroom login` to send messages", maxInt(0, m.width)))
	}
	return m.input.View()
}

func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.palette.Base.Foreground)).
		Background(lipgloss.Color(m.palette.Chrome.Footer)).
		Padding(0, 1)

	base := "enter send · tab rooms · pgup/pgdn scroll · ctrl+u users · f1 help · ctrl+c quit"
	return style.Width(maxInt(0, m.width)).Render(truncateVis(base, maxInt(0, m.width-2)))
}

func (m *Model) renderUserList(width, height int) string {
	lines := make([]string, 0, len(m.session.ActiveUsers)+2)
	lines = append(lines, m.palette.HeaderStyle().Render("Online"))
	for _, user := range m.session.ActiveUsers {
		name := truncateVis(user, maxInt(1, width-2))
		if user == m.session.User {
			lines = append(lines, m.msgStyles.Own.Render(name))
			continue
		}
		lines = append(lines, m.msgStyles.Users.Foreground(user).Render(name))
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(strings.Join(lines, "\n"))
}

func newMessagesHint(n int) string {
	if n == 1 {
		return "↓ 1 new message (end to jump)"
	}
	return fmt.Sprintf("↓ %d new messages (end to jump)", n)
}

func joinHeader(left, center, right string, width int) string {
	left = strings.TrimSpace(left)
	center = strings.TrimSpace(center)
	right = strings.TrimSpace(right)
	if width <= 0 {
		return left
	}

	space := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if space < 2 {
		line := left
		if right != "" {
			line = left + "  " + right
		}
		return truncateVis(line, width)
	}

	leftGap := space / 2
	rightGap := space - leftGap
	return left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right
}

func truncateVis(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

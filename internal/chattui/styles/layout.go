package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the space between the timeline and the user list.
	LayoutGap = 1

	minUserListWidth = 14
	maxUserListWidth = 22
	minTimelineWidth = 40
)

// ColumnWidths splits the screen between the timeline and the user list.
type ColumnWidths struct {
	Timeline int
	Users    int
}

// ComputeColumnWidths returns widths for the timeline and the optional user
// list. The list is dropped when the terminal is too narrow to fit both.
func ComputeColumnWidths(totalWidth int, showUsers bool) ColumnWidths {
	if totalWidth <= 0 {
		return ColumnWidths{}
	}
	if !showUsers {
		return ColumnWidths{Timeline: totalWidth}
	}
	users := clampInt(totalWidth/5, minUserListWidth, maxUserListWidth)
	timeline := totalWidth - users - LayoutGap
	if timeline < minTimelineWidth {
		return ColumnWidths{Timeline: totalWidth}
	}
	return ColumnWidths{Timeline: timeline, Users: users}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	color := theme.Base.Border
	if focused {
		color = theme.Base.Accent
	}
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(color))
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

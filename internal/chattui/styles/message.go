package styles

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const dividerRune = "─"

// LinkPattern matches http(s) URLs inside message bodies.
var LinkPattern = regexp.MustCompile(`https?://[\w-]+(\.[\w-]+)+([\w.,@?^=%&:/~+#-]*[\w@?^=%&/~+#-])?`)

// MessageStyles contains pre-built styles for timeline rendering.
type MessageStyles struct {
	Theme Theme
	Users *UserColorMapper

	Author  lipgloss.Style
	Own     lipgloss.Style
	Clock   lipgloss.Style
	Body    lipgloss.Style
	Link    lipgloss.Style
	Divider lipgloss.Style
	Notice  lipgloss.Style
	Error   lipgloss.Style
}

// NewMessageStyles builds a reusable style set for messages.
func NewMessageStyles(theme Theme, mapper *UserColorMapper) MessageStyles {
	if mapper == nil {
		mapper = NewUserColorMapperWithPalette(theme.UserPalette)
	}
	return MessageStyles{
		Theme:   theme,
		Users:   mapper,
		Author:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Other)).Bold(true),
		Own:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Own)).Bold(true),
		Clock:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Link:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Link)).Underline(true),
		Divider: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Divider)),
		Notice:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Notice)).Italic(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Error)),
	}
}

// RenderHeader renders the author line of a message. Own messages use the
// own-message color, others get a stable per-user color.
func (s MessageStyles) RenderHeader(author, clock string, own bool) string {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "?"
	}
	var styled string
	if own {
		styled = s.Own.Render(name)
	} else {
		styled = s.Users.Foreground(name).Render(name)
	}
	if clock == "" {
		return styled
	}
	return styled + " " + s.Clock.Render(clock)
}

// RenderBody wraps body to width and highlights links. Each returned line is
// prefixed with indent.
func (s MessageStyles) RenderBody(body string, width int, indent string) []string {
	renderWidth := width - lipgloss.Width(indent)
	if renderWidth < 1 {
		renderWidth = 1
	}
	wrapped := WrapBody(body, renderWidth)
	lines := strings.Split(wrapped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, indent+s.renderLine(line))
	}
	return out
}

func (s MessageStyles) renderLine(line string) string {
	locs := LinkPattern.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return s.Body.Render(line)
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			b.WriteString(s.Body.Render(line[prev:loc[0]]))
		}
		b.WriteString(s.Link.Render(line[loc[0]:loc[1]]))
		prev = loc[1]
	}
	if prev < len(line) {
		b.WriteString(s.Body.Render(line[prev:]))
	}
	return b.String()
}

// RenderDivider renders a centered time label between rules.
func (s MessageStyles) RenderDivider(label string, width int) string {
	label = " " + strings.TrimSpace(label) + " "
	labelWidth := lipgloss.Width(label)
	if width <= labelWidth+2 {
		return s.Divider.Render(strings.TrimSpace(label))
	}
	side := (width - labelWidth) / 2
	right := width - labelWidth - side
	return s.Divider.Render(strings.Repeat(dividerRune, side) + label + strings.Repeat(dividerRune, right))
}

// RenderNotice renders a system notice such as a join or leave line.
func (s MessageStyles) RenderNotice(text string, isError bool) string {
	if isError {
		return s.Error.Render("! " + text)
	}
	return s.Notice.Render("· " + text)
}

// WrapBody word-wraps each paragraph of body to width.
func WrapBody(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}

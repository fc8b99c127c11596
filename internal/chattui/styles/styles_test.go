package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/stretchr/testify/require"
)

func TestThemeByNameFallsBack(t *testing.T) {
	require.Equal(t, "high-contrast", ThemeByName(" High-Contrast ").Name)
	require.Equal(t, "default", ThemeByName("neon").Name)
}

func TestUserColorsAreStable(t *testing.T) {
	m := NewUserColorMapper()
	require.Equal(t, m.ColorCode("alice"), m.ColorCode(" Alice "))
	require.Contains(t, UserColorPalette, m.ColorCode("bob"))
}

func TestLinkPattern(t *testing.T) {
	text := "see https://example.com/a?b=1, and http://x.org."
	require.Equal(t, []string{"https://example.com/a?b=1", "http://x.org"}, LinkPattern.FindAllString(text, -1))
	require.Empty(t, LinkPattern.FindAllString("no links at example.com", -1))
}

func TestRenderBodyWrapsAndKeepsText(t *testing.T) {
	s := NewMessageStyles(DefaultTheme, nil)
	lines := s.RenderBody("the quick brown fox jumps over https://example.com/lazy dog", 20, "  ")
	require.Greater(t, len(lines), 1)

	var plain []string
	for _, line := range lines {
		require.LessOrEqual(t, ansi.PrintableRuneWidth(line), 30)
		plain = append(plain, strings.TrimSpace(stripANSI(line)))
	}
	joined := strings.Join(plain, " ")
	require.Contains(t, joined, "https://example.com/lazy")
	require.True(t, strings.HasPrefix(joined, "the quick"))
}

func TestRenderDividerCentersLabel(t *testing.T) {
	s := NewMessageStyles(DefaultTheme, nil)
	out := stripANSI(s.RenderDivider("周一 09:05", 30))
	require.Equal(t, 30, lipgloss.Width(out))
	require.Contains(t, out, " 周一 09:05 ")
	require.True(t, strings.HasPrefix(out, dividerRune))

	narrow := stripANSI(s.RenderDivider("周一 09:05", 4))
	require.Equal(t, "周一 09:05", narrow)
}

func TestComputeColumnWidths(t *testing.T) {
	require.Equal(t, ColumnWidths{Timeline: 100}, ComputeColumnWidths(100, false))

	w := ComputeColumnWidths(100, true)
	require.Equal(t, 20, w.Users)
	require.Equal(t, 100-20-LayoutGap, w.Timeline)

	require.Equal(t, ColumnWidths{Timeline: 50}, ComputeColumnWidths(50, true))
	require.Equal(t, ColumnWidths{}, ComputeColumnWidths(0, true))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == ansi.Marker:
			inEscape = true
		case inEscape:
			if ansi.IsTerminator(r) {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

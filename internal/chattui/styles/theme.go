// Package styles holds the lipgloss themes used by the chat terminal UI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// MessageColors defines colors for timeline entries.
type MessageColors struct {
	Own    string
	Other  string
	Notice string
	Error  string
	Link   string
}

// ConnectionColors defines colors for realtime connection state.
type ConnectionColors struct {
	Online     string
	Connecting string
	Offline    string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Divider      string
}

// Theme bundles the color tokens of one palette.
type Theme struct {
	Name        string
	BorderStyle string   // "rounded", "sharp", "double", "hidden"
	UserPalette []string // optional override for user identity colors (ANSI-256 codes)

	Base       BaseColors
	Message    MessageColors
	Connection ConnectionColors
	Chrome     ChromeColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// ThemeByName resolves a theme, falling back to the default palette.
func ThemeByName(name string) Theme {
	if theme, ok := Themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return theme
	}
	return DefaultTheme
}

func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

func (t Theme) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Header)).Bold(true)
}

func (t Theme) FooterStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Footer))
}

func (t Theme) SelectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.SelectedItem)).Bold(true)
}

func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Message.Error)).Bold(true)
}

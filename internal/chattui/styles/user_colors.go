package styles

import (
	"hash/fnv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// UserColorPalette is an ANSI 256 palette for stable user identity colors.
// Red and green are left for error and connection state.
var UserColorPalette = []string{
	"33", "39", "45", "69", "75", "81", "87", "99",
	"111", "117", "123", "147", "153", "159", "183", "189",
}

// UserColorMapper resolves deterministic per-user styles and caches them.
type UserColorMapper struct {
	palette []string

	mu    sync.RWMutex
	cache map[string]lipgloss.Style
}

func NewUserColorMapper() *UserColorMapper {
	return NewUserColorMapperWithPalette(nil)
}

// NewUserColorMapperWithPalette uses palette, or the default palette when empty.
func NewUserColorMapperWithPalette(palette []string) *UserColorMapper {
	if len(palette) == 0 {
		palette = UserColorPalette
	}
	return &UserColorMapper{
		palette: append([]string(nil), palette...),
		cache:   make(map[string]lipgloss.Style, 64),
	}
}

// Foreground returns a cached bold foreground style for a user.
func (m *UserColorMapper) Foreground(user string) lipgloss.Style {
	key := normalizeUser(user)

	m.mu.RLock()
	if style, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.ColorCode(key))).Bold(true)

	m.mu.Lock()
	m.cache[key] = style
	m.mu.Unlock()
	return style
}

// ColorCode returns the ANSI-256 color code selected for user.
func (m *UserColorMapper) ColorCode(user string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalizeUser(user)))
	return m.palette[int(h.Sum32()%uint32(len(m.palette)))]
}

func normalizeUser(user string) string {
	normalized := strings.ToLower(strings.TrimSpace(user))
	if normalized == "" {
		return "?"
	}
	return normalized
}

// Package state persists terminal UI state between runs: the last room,
// recently visited rooms and unsent drafts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	CurrentVersion = 1

	defaultDebounce = 1 * time.Second
	maxRecentRooms  = 10
	draftMaxAge     = 30 * 24 * time.Hour
)

type TUIState struct {
	Version     int              `json:"version"`
	LastRoom    string           `json:"last_room,omitempty"`
	RecentRooms []string         `json:"recent_rooms,omitempty"` // most recent first
	Drafts      map[string]Draft `json:"drafts,omitempty"`       // room -> unsent text
	Preferences Preferences      `json:"preferences,omitempty"`
}

type Draft struct {
	Room      string    `json:"room"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Preferences struct {
	ShowUserList bool `json:"show_user_list,omitempty"`
}

type Manager struct {
	path     string
	lockPath string

	mu        sync.Mutex
	state     TUIState
	dirty     bool
	timer     *time.Timer
	debounce  time.Duration
	lastWrite time.Time
}

func New(path string) *Manager {
	path = strings.TrimSpace(path)
	return &Manager{
		path:     path,
		lockPath: path + ".lock",
		state: TUIState{
			Version: CurrentVersion,
			Drafts:  make(map[string]Draft),
		},
		debounce: defaultDebounce,
	}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}

	loaded, err := m.loadLocked()
	if err != nil {
		return err
	}
	m.state = loaded
	m.dirty = false
	return nil
}

func (m *Manager) Snapshot() TUIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

func (m *Manager) LastRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastRoom
}

// VisitRoom records room as the current one and moves it to the front of the
// recent list.
func (m *Manager) VisitRoom(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}
	if m.state.LastRoom == room && len(m.state.RecentRooms) > 0 && m.state.RecentRooms[0] == room {
		return
	}
	m.state.LastRoom = room
	m.state.RecentRooms = pushRecent(m.state.RecentRooms, room)
	m.markDirtyLocked()
}

func (m *Manager) RecentRooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.state.RecentRooms...)
}

func (m *Manager) Draft(room string) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room = strings.TrimSpace(room)
	if room == "" || len(m.state.Drafts) == 0 {
		return Draft{}, false
	}
	draft, ok := m.state.Drafts[room]
	return draft, ok
}

// SetDraft stores unsent text for a room. Blank text removes the draft.
func (m *Manager) SetDraft(draft Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := strings.TrimSpace(draft.Room)
	if room == "" {
		return
	}
	if strings.TrimSpace(draft.Body) == "" {
		m.deleteDraftLocked(room)
		return
	}
	if m.state.Drafts == nil {
		m.state.Drafts = make(map[string]Draft)
	}
	if prev, ok := m.state.Drafts[room]; ok && prev.Body == draft.Body {
		return
	}
	draft.Room = room
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}
	m.state.Drafts[room] = draft
	m.markDirtyLocked()
}

func (m *Manager) DeleteDraft(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteDraftLocked(strings.TrimSpace(room))
}

func (m *Manager) deleteDraftLocked(room string) {
	if room == "" || len(m.state.Drafts) == 0 {
		return
	}
	if _, ok := m.state.Drafts[room]; !ok {
		return
	}
	delete(m.state.Drafts, room)
	m.markDirtyLocked()
}

func (m *Manager) Preferences() Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Preferences
}

func (m *Manager) SetPreferences(p Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Preferences == p {
		return
	}
	m.state.Preferences = p
	m.markDirtyLocked()
}

func (m *Manager) Close() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	needsSave := m.dirty
	m.mu.Unlock()
	if !needsSave {
		return nil
	}
	return m.SaveNow()
}

func (m *Manager) SaveNow() error {
	m.mu.Lock()
	if m.path == "" {
		m.mu.Unlock()
		return nil
	}
	state := cloneState(m.state)
	m.dirty = false
	m.mu.Unlock()

	state.Version = CurrentVersion
	state = normalizeState(state, time.Now().UTC())

	if err := withFileLock(m.lockPath, func() error {
		return writeAtomicJSON(m.path, state)
	}); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.lastWrite = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	if m.path == "" {
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, func() {
			_ = m.SaveNow()
		})
		return
	}
	_ = m.timer.Reset(m.debounce)
}

func (m *Manager) loadLocked() (TUIState, error) {
	var out TUIState
	if err := withFileLock(m.lockPath, func() error {
		payload, err := os.ReadFile(m.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = TUIState{Version: CurrentVersion}
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			out = TUIState{Version: CurrentVersion}
			return nil
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return fmt.Errorf("parse %s: %w", m.path, err)
		}
		return nil
	}); err != nil {
		return TUIState{}, err
	}

	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	if out.Drafts == nil {
		out.Drafts = make(map[string]Draft)
	}
	return out, nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state TUIState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func normalizeState(state TUIState, now time.Time) TUIState {
	if state.Drafts == nil {
		state.Drafts = make(map[string]Draft)
	}

	// Drop blank and stale drafts.
	for room, draft := range state.Drafts {
		if strings.TrimSpace(room) == "" || strings.TrimSpace(draft.Body) == "" {
			delete(state.Drafts, room)
			continue
		}
		if !draft.UpdatedAt.IsZero() && now.Sub(draft.UpdatedAt) > draftMaxAge {
			delete(state.Drafts, room)
		}
	}

	recent := make([]string, 0, len(state.RecentRooms))
	for i := len(state.RecentRooms) - 1; i >= 0; i-- {
		recent = pushRecent(recent, state.RecentRooms[i])
	}
	state.RecentRooms = recent
	return state
}

// pushRecent moves room to the front, de-duplicating and capping the list.
func pushRecent(rooms []string, room string) []string {
	room = strings.TrimSpace(room)
	if room == "" {
		return rooms
	}
	out := make([]string, 0, len(rooms)+1)
	out = append(out, room)
	for _, r := range rooms {
		if r == room || strings.TrimSpace(r) == "" {
			continue
		}
		out = append(out, r)
	}
	if len(out) > maxRecentRooms {
		out = out[:maxRecentRooms]
	}
	return out
}

func cloneState(state TUIState) TUIState {
	out := state
	if state.Drafts != nil {
		out.Drafts = make(map[string]Draft, len(state.Drafts))
		for k, v := range state.Drafts {
			out.Drafts[k] = v
		}
	}
	if len(state.RecentRooms) > 0 {
		out.RecentRooms = append([]string(nil), state.RecentRooms...)
	}
	return out
}

// SortedDraftRooms lists rooms with drafts, for display.
func (s TUIState) SortedDraftRooms() []string {
	rooms := make([]string, 0, len(s.Drafts))
	for room := range s.Drafts {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

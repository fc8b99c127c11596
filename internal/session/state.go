// Package session holds the view state of one logged-in user: the current
// room, its timeline and pagination cursor, presence, and notices. Every
// transition returns a new State together with the effects the caller must
// perform (fetches, realtime emits); State itself performs no I/O.
package session

import (
	"slices"
	"strings"
	"time"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// DefaultMaxNotices bounds the notice log.
const DefaultMaxNotices = 50

// Options configures a session.
type Options struct {
	User       string
	Normalizer timeline.Normalizer
	Paging     paging.Controller
	MaxNotices int
	Now        func() time.Time
}

// State is an immutable snapshot. Transitions never modify the receiver.
type State struct {
	opts *Options

	User     string
	Room     string
	RoomName string
	Cursor   paging.Cursor
	Timeline timeline.Timeline

	ActiveUsers []string

	// HistoryReady is set once the initial history fetch resolved, successfully or not.
	HistoryReady bool
	// HistoryFailed marks a room whose initial history could not be loaded.
	HistoryFailed bool
	// Joined is set when join_room has been requested for Room.
	Joined bool

	Notices []Notice

	pending []chat.RawMessage
}

// New returns a session that is not in any room yet.
func New(opts Options) State {
	if opts.MaxNotices <= 0 {
		opts.MaxNotices = DefaultMaxNotices
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Paging.PageSize <= 0 {
		opts.Paging.PageSize = paging.DefaultPageSize
	}
	user := strings.TrimSpace(opts.User)
	opts.User = user
	return State{
		opts:     &opts,
		User:     user,
		Timeline: timeline.New(user, opts.Normalizer),
	}
}

// Options returns the options the session was created with.
func (s State) Options() Options {
	if s.opts == nil {
		return Options{}
	}
	return *s.opts
}

// Pending reports how many live messages are waiting for the initial history.
func (s State) Pending() int { return len(s.pending) }

// Loading reports whether a history fetch is in flight.
func (s State) Loading() bool { return s.Cursor.Loading }

// CanLoadOlder reports whether scrolling to the top should fetch another page.
func (s State) CanLoadOlder() bool {
	return s.Room != "" && s.HistoryReady && !s.Cursor.Loading && s.Cursor.HasMore
}

func (s State) now() time.Time {
	if s.opts == nil || s.opts.Now == nil {
		return time.Now()
	}
	return s.opts.Now()
}

func (s State) controller() paging.Controller {
	if s.opts == nil {
		return paging.Controller{PageSize: paging.DefaultPageSize}
	}
	return s.opts.Paging
}

func (s State) normalizer() timeline.Normalizer {
	return s.Timeline.Normalizer()
}

// clone detaches every slice so the copy can be modified freely.
func (s State) clone() State {
	out := s
	out.ActiveUsers = slices.Clone(s.ActiveUsers)
	out.Notices = slices.Clone(s.Notices)
	out.pending = slices.Clone(s.pending)
	return out
}

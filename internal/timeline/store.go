package timeline

import "github.com/thousandtech/chatroom/internal/chat"

// Store is the single owner of a room's timeline for callers that prefer a
// mutable handle. It is not safe for concurrent use; all calls are expected
// from one event loop.
type Store struct {
	tl Timeline
}

// NewStore returns an empty store.
func NewStore(self string, norm Normalizer) *Store {
	return &Store{tl: New(self, norm)}
}

// Snapshot returns the current immutable timeline.
func (s *Store) Snapshot() Timeline { return s.tl }

// Dispatch applies ev.
func (s *Store) Dispatch(ev Event) { s.tl = Reduce(s.tl, ev) }

func (s *Store) Reset() { s.Dispatch(ResetEvent{}) }

func (s *Store) AppendBatch(raws []chat.RawMessage) { s.Dispatch(AppendEvent{Messages: raws}) }

func (s *Store) PrependBatch(raws []chat.RawMessage) { s.Dispatch(PrependEvent{Messages: raws}) }

func (s *Store) AppendLive(raw chat.RawMessage) { s.Dispatch(LiveEvent{Message: raw}) }

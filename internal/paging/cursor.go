// Package paging loads older history pages into a timeline one page at a time.
package paging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/thousandtech/chatroom/internal/chat"
)

// DefaultPageSize is the number of messages requested per page.
const DefaultPageSize = 50

// ErrNoFetcher is returned when a page is requested without a Fetcher.
var ErrNoFetcher = errors.New("paging: no fetcher configured")

// Cursor tracks how far back a room's history has been loaded.
type Cursor struct {
	Offset  int
	HasMore bool
	RoomID  string
	Loading bool
	// Token identifies the room visit that issued a fetch. It changes on every
	// room switch, so a response for an earlier visit of the same room is stale too.
	Token string
}

// NewCursor returns the cursor for a fresh visit of roomID.
func NewCursor(roomID string) Cursor {
	return Cursor{
		HasMore: true,
		RoomID:  roomID,
		Token:   uuid.NewString(),
	}
}

// Request describes one page fetch.
type Request struct {
	RoomID string
	Token  string
	Offset int
	Limit  int
}

// Fetcher retrieves one page of history, newest message last.
type Fetcher interface {
	FetchPage(ctx context.Context, req Request) (chat.HistoryPage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (chat.HistoryPage, error)

func (f FetcherFunc) FetchPage(ctx context.Context, req Request) (chat.HistoryPage, error) {
	return f(ctx, req)
}

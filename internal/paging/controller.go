package paging

import (
	"context"
	"fmt"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// Outcome reports what happened to a page.
type Outcome int

const (
	// OutcomeSkipped means no fetch was started.
	OutcomeSkipped Outcome = iota
	// OutcomeStale means the response belonged to another room visit and was dropped.
	OutcomeStale
	// OutcomePrepended means older messages were added to the timeline.
	OutcomePrepended
	// OutcomeExhausted means the server had nothing older.
	OutcomeExhausted
	// OutcomeFailed means the fetch failed; history is treated as exhausted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeStale:
		return "stale"
	case OutcomePrepended:
		return "prepended"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Controller drives backward pagination. Begin and Complete are split so an
// event loop can run the fetch asynchronously between them; LoadOlder does
// both synchronously.
type Controller struct {
	PageSize int
	// AdvanceEagerly moves the offset when the fetch starts instead of when it
	// succeeds. A failed page is then skipped rather than retried.
	AdvanceEagerly bool
	Fetcher        Fetcher
}

// NewController returns a controller with the default page size.
func NewController(fetcher Fetcher) Controller {
	return Controller{PageSize: DefaultPageSize, Fetcher: fetcher}
}

func (c Controller) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// Begin marks cur as loading and returns the request to issue. ok is false,
// and cur is returned untouched, when a load is in flight or history is exhausted.
func (c Controller) Begin(cur Cursor) (next Cursor, req Request, ok bool) {
	if cur.Loading || !cur.HasMore {
		return cur, Request{}, false
	}
	req = Request{
		RoomID: cur.RoomID,
		Token:  cur.Token,
		Offset: cur.Offset,
		Limit:  c.pageSize(),
	}
	cur.Loading = true
	if c.AdvanceEagerly {
		cur.Offset += req.Limit
	}
	return cur, req, true
}

// Complete applies the result of req. Responses for another room visit, or
// arriving when no load is pending, leave cur and tl unchanged.
func (c Controller) Complete(cur Cursor, req Request, page chat.HistoryPage, err error, tl timeline.Timeline) (Cursor, timeline.Timeline, Outcome) {
	next, outcome := c.settle(cur, req, page, err)
	if outcome == OutcomePrepended {
		tl = tl.PrependBatch(page.Messages)
	}
	return next, tl, outcome
}

// LoadOlder fetches the next older page into store. cur.Loading is released
// on every path, including a panicking fetcher.
func (c Controller) LoadOlder(ctx context.Context, cur *Cursor, store *timeline.Store) (Outcome, error) {
	if c.Fetcher == nil {
		return OutcomeSkipped, ErrNoFetcher
	}
	next, req, ok := c.Begin(*cur)
	if !ok {
		return OutcomeSkipped, nil
	}
	*cur = next
	defer func() { cur.Loading = false }()

	page, err := c.Fetcher.FetchPage(ctx, req)
	settled, outcome := c.settle(*cur, req, page, err)
	*cur = settled
	if outcome == OutcomePrepended {
		store.PrependBatch(page.Messages)
	}
	if outcome == OutcomeFailed {
		return outcome, fmt.Errorf("load older messages for %s: %w", req.RoomID, err)
	}
	return outcome, nil
}

func (c Controller) settle(cur Cursor, req Request, page chat.HistoryPage, err error) (Cursor, Outcome) {
	if req.RoomID != cur.RoomID || req.Token != cur.Token || !cur.Loading {
		staleLog := logging.WithRoom("paging", req.RoomID)
		staleLog.Debug().
			Str("current_room", cur.RoomID).
			Int("offset", req.Offset).
			Msg("discarding stale page")
		return cur, OutcomeStale
	}

	cur.Loading = false
	log := logging.WithRoom("paging", cur.RoomID)

	if err != nil {
		cur.HasMore = false
		log.Warn().Err(err).Int("offset", req.Offset).Msg("history page failed")
		return cur, OutcomeFailed
	}
	if len(page.Messages) == 0 {
		cur.HasMore = false
		log.Debug().Int("offset", req.Offset).Msg("history exhausted")
		return cur, OutcomeExhausted
	}

	if !c.AdvanceEagerly {
		cur.Offset = req.Offset + len(page.Messages)
	}
	cur.HasMore = page.HasMore
	log.Debug().
		Int("offset", req.Offset).
		Int("count", len(page.Messages)).
		Bool("has_more", page.HasMore).
		Msg("history page loaded")
	return cur, OutcomePrepended
}

package cache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// Fetcher wraps an upstream fetcher, recording every page it returns. When
// Fallback is set, a failed upstream fetch is answered from the cache instead.
type Fetcher struct {
	Upstream   paging.Fetcher
	Store      *Store
	Normalizer timeline.Normalizer
	Fallback   bool

	log zerolog.Logger
}

// NewFetcher returns a caching fetcher.
func NewFetcher(upstream paging.Fetcher, store *Store, norm timeline.Normalizer, fallback bool) *Fetcher {
	return &Fetcher{
		Upstream:   upstream,
		Store:      store,
		Normalizer: norm,
		Fallback:   fallback,
		log:        logging.Component("cache"),
	}
}

// FetchPage implements paging.Fetcher.
func (f *Fetcher) FetchPage(ctx context.Context, req paging.Request) (chat.HistoryPage, error) {
	page, err := f.Upstream.FetchPage(ctx, req)
	if err != nil {
		if !f.Fallback || f.Store == nil {
			return page, err
		}
		cached, cacheErr := f.Store.FetchPage(ctx, req)
		if cacheErr != nil || len(cached.Messages) == 0 {
			return page, err
		}
		f.log.Warn().Err(err).Str("room_id", req.RoomID).Int("offset", req.Offset).Msg("serving history from cache")
		return cached, nil
	}

	if f.Store != nil && len(page.Messages) > 0 {
		msgs := make([]timeline.Message, 0, len(page.Messages))
		for _, raw := range page.Messages {
			msgs = append(msgs, f.Normalizer.Normalize(raw))
		}
		if n, err := f.Store.Save(ctx, req.RoomID, msgs); err != nil {
			f.log.Warn().Err(err).Str("room_id", req.RoomID).Msg("failed to cache history page")
		} else {
			f.log.Debug().Str("room_id", req.RoomID).Int("new", n).Msg("cached history page")
		}
	}
	return page, nil
}

package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned when a history response has no body.
var ErrEmptyPayload = errors.New("empty history payload")

// HistoryPage is one response of GET /rooms/{id}/messages, oldest first.
type HistoryPage struct {
	Messages []RawMessage `json:"messages"`
	HasMore  bool         `json:"has_more"`
}

// DecodeHistoryPage accepts both the object shape {messages, has_more} and the
// legacy bare array. For a bare array has_more is inferred from limit: a full
// page means there may be more.
func DecodeHistoryPage(payload []byte, limit int) (HistoryPage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return HistoryPage{}, ErrEmptyPayload
	}

	switch trimmed[0] {
	case '[':
		var msgs []RawMessage
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return HistoryPage{}, fmt.Errorf("decode history array: %w", err)
		}
		return HistoryPage{
			Messages: msgs,
			HasMore:  limit > 0 && len(msgs) >= limit,
		}, nil
	case '{':
		var envelope struct {
			Messages []RawMessage `json:"messages"`
			HasMore  *bool        `json:"has_more"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return HistoryPage{}, fmt.Errorf("decode history object: %w", err)
		}
		page := HistoryPage{Messages: envelope.Messages}
		if envelope.HasMore != nil {
			page.HasMore = *envelope.HasMore
		} else {
			page.HasMore = limit > 0 && len(envelope.Messages) >= limit
		}
		return page, nil
	default:
		return HistoryPage{}, fmt.Errorf("unexpected history payload starting with %q", trimmed[0])
	}
}

package timeline

import (
	"strings"
	"time"
)

// Line is a render-ready timeline entry.
type Line struct {
	ItemID uint64
	Kind   Kind
	Label  string // dividers only
	Author string
	Body   string
	SentAt int64
	Own    bool
}

// Render produces display lines with divider labels computed against a single
// now for the whole pass.
func (t Timeline) Render(now time.Time) []Line {
	zone := t.norm.zone()
	lines := make([]Line, 0, len(t.items))
	for i := range t.items {
		item := t.items[i]
		switch item.Kind {
		case KindDivider:
			lines = append(lines, Line{
				ItemID: item.ID,
				Kind:   KindDivider,
				Label:  Label(item.Time, now, zone),
				SentAt: item.Time.Timestamp,
			})
		case KindMessage:
			author := strings.TrimSpace(item.Message.Author)
			if author == "" {
				author = "unknown"
			}
			lines = append(lines, Line{
				ItemID: item.ID,
				Kind:   KindMessage,
				Author: author,
				Body:   item.Message.Body,
				SentAt: item.Message.SentAt,
				Own:    item.Own,
			})
		}
	}
	return lines
}

// Change summarizes how next differs from prev.
type Change struct {
	Reset     bool
	Prepended int // items now in front of the oldest surviving item
	Dropped   int // leading items of prev that no longer exist
	Appended  int // items after prev's newest item
}

// Diff compares two versions of the same timeline by item identity.
func Diff(prev, next Timeline) Change {
	if len(prev.items) == 0 {
		return Change{Appended: len(next.items)}
	}
	lastIdx := next.IndexOf(prev.items[len(prev.items)-1].ID)
	if lastIdx < 0 {
		return Change{Reset: true, Appended: len(next.items)}
	}
	change := Change{Appended: len(next.items) - lastIdx - 1}
	for i := range prev.items {
		if idx := next.IndexOf(prev.items[i].ID); idx >= 0 {
			change.Prepended = idx
			break
		}
		change.Dropped++
	}
	return change
}

// Anchor resolves the item that should stay at the top of the viewport after
// prev became next. If topID itself disappeared (a head divider merged into a
// prepended run) the next surviving item of prev takes its place. Zero means
// nothing survived.
func Anchor(prev, next Timeline, topID uint64) uint64 {
	if next.IndexOf(topID) >= 0 {
		return topID
	}
	start := prev.IndexOf(topID)
	if start < 0 {
		return 0
	}
	for i := start + 1; i < len(prev.items); i++ {
		if id := prev.items[i].ID; next.IndexOf(id) >= 0 {
			return id
		}
	}
	return 0
}

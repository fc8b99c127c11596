package chattui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/thousandtech/chatroom/internal/chattui/styles"
	"github.com/thousandtech/chatroom/internal/timeline"
)

const bodyIndent = "  "

// row is one terminal line of the rendered timeline.
type row struct {
	itemID uint64
	text   string
}

// timelinePane renders a timeline into rows and keeps the scroll position
// stable across prepends. top is the index of the first visible row; follow
// pins the view to the newest message.
type timelinePane struct {
	styles styles.MessageStyles

	tl     timeline.Timeline
	now    time.Time
	rows   []row
	width  int
	height int

	top    int
	follow bool
	unseen int // messages appended while scrolled up
}

func newTimelinePane(st styles.MessageStyles) *timelinePane {
	return &timelinePane{styles: st, follow: true}
}

func (p *timelinePane) resize(width, height int) {
	if width == p.width && height == p.height {
		return
	}
	anchorID, offset := p.topAnchor()
	p.width = width
	p.height = height
	p.rebuild()
	p.restore(anchorID, offset)
}

// setNow re-renders divider labels against a new reference time.
func (p *timelinePane) setNow(now time.Time) {
	anchorID, offset := p.topAnchor()
	p.now = now
	p.rebuild()
	p.restore(anchorID, offset)
}

// setTimeline swaps in next. After a prepend the item at the top of the view
// stays at the top; a reset or appended messages while following jump to the
// newest message.
func (p *timelinePane) setTimeline(next timeline.Timeline) {
	prev := p.tl
	change := timeline.Diff(prev, next)
	anchorID, offset := p.topAnchor()

	p.tl = next
	p.rebuild()

	switch {
	case change.Reset || prev.Len() == 0:
		p.scrollToBottom()
	case change.Prepended > 0 || change.Dropped > 0:
		id := timeline.Anchor(prev, next, anchorID)
		if id != anchorID {
			offset = 0
		}
		if idx := p.firstRow(id); idx >= 0 {
			p.top = idx + offset
		}
		p.follow = false
		p.clamp()
	case p.follow:
		p.scrollToBottom()
	default:
		p.unseen += countMessages(next, next.Len()-change.Appended)
		p.restore(anchorID, offset)
	}
}

func countMessages(tl timeline.Timeline, from int) int {
	n := 0
	for i := from; i < tl.Len(); i++ {
		if item, ok := tl.At(i); ok && item.Kind == timeline.KindMessage {
			n++
		}
	}
	return n
}

func (p *timelinePane) rebuild() {
	now := p.now
	if now.IsZero() {
		now = time.Now()
	}
	zone := p.tl.Normalizer().Zone
	if zone == nil {
		zone = timeline.LoadZone("")
	}
	lines := p.tl.Render(now)
	rows := make([]row, 0, len(lines)*2)
	for _, line := range lines {
		switch line.Kind {
		case timeline.KindDivider:
			rows = append(rows, row{itemID: line.ItemID, text: p.styles.RenderDivider(line.Label, p.width)})
		case timeline.KindMessage:
			clock := time.Unix(line.SentAt, 0).In(zone).Format("15:04")
			rows = append(rows, row{itemID: line.ItemID, text: p.styles.RenderHeader(line.Author, clock, line.Own)})
			for _, body := range p.styles.RenderBody(line.Body, p.width, bodyIndent) {
				rows = append(rows, row{itemID: line.ItemID, text: body})
			}
		}
	}
	p.rows = rows
}

// topAnchor returns the item at the top of the view and how many of its rows
// are scrolled past.
func (p *timelinePane) topAnchor() (uint64, int) {
	if p.top < 0 || p.top >= len(p.rows) {
		return 0, 0
	}
	id := p.rows[p.top].itemID
	return id, p.top - p.firstRow(id)
}

func (p *timelinePane) restore(id uint64, offset int) {
	if p.follow {
		p.scrollToBottom()
		return
	}
	if idx := p.firstRow(id); idx >= 0 {
		p.top = idx + offset
	}
	p.clamp()
}

func (p *timelinePane) firstRow(id uint64) int {
	if id == 0 {
		return -1
	}
	for i, r := range p.rows {
		if r.itemID == id {
			return i
		}
	}
	return -1
}

func (p *timelinePane) maxTop() int {
	limit := len(p.rows) - p.height
	if limit < 0 {
		return 0
	}
	return limit
}

func (p *timelinePane) clamp() {
	if p.top > p.maxTop() {
		p.top = p.maxTop()
	}
	if p.top < 0 {
		p.top = 0
	}
	if p.top == p.maxTop() {
		p.follow = true
		p.unseen = 0
	}
}

func (p *timelinePane) scrollToBottom() {
	p.top = p.maxTop()
	p.follow = true
	p.unseen = 0
}

// scroll moves the view by delta rows and reports whether it is at the top.
func (p *timelinePane) scroll(delta int) bool {
	p.top += delta
	if delta < 0 {
		p.follow = false
	}
	p.clamp()
	return p.atTop()
}

func (p *timelinePane) atTop() bool { return p.top == 0 }

func (p *timelinePane) page() int {
	if p.height <= 1 {
		return 1
	}
	return p.height - 1
}

func (p *timelinePane) view() string {
	if p.height <= 0 || p.width <= 0 {
		return ""
	}
	out := make([]string, 0, p.height)
	for i := p.top; i < len(p.rows) && len(out) < p.height; i++ {
		out = append(out, p.rows[i].text)
	}
	for len(out) < p.height {
		out = append(out, "")
	}
	if p.unseen > 0 && !p.follow {
		out[len(out)-1] = p.styles.Notice.Render(newMessagesHint(p.unseen))
	}
	return lipgloss.NewStyle().Width(p.width).MaxHeight(p.height).Render(strings.Join(out, "\n"))
}

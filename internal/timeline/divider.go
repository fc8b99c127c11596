package timeline

import (
	"fmt"
	"time"

	"github.com/thousandtech/chatroom/internal/chat"
)

// MinuteBucket is the unit at which consecutive messages count as the same moment.
func MinuteBucket(epoch int64) int64 {
	bucket := epoch / 60
	if epoch%60 != 0 && epoch < 0 {
		bucket--
	}
	return bucket
}

// NeedsDivider reports whether curr starts a new minute run after prev.
// A nil prev marks the start of a sequence.
func NeedsDivider(prev *Message, curr Message) bool {
	if prev == nil {
		return true
	}
	return MinuteBucket(prev.SentAt) != MinuteBucket(curr.SentAt)
}

var weekdayNames = [...]string{"", "一", "二", "三", "四", "五", "六", "日"}

// Label formats a divider for view relative to now. Both sides are compared as
// calendar dates in zone, so every viewer sees the same text.
//
//	same day            15:04
//	same ISO week       周三 15:04
//	same year           5月22日 15:04
//	otherwise           2024年5月22日 15:04
func Label(view chat.TimeView, now time.Time, zone *time.Location) string {
	if zone == nil {
		zone = fallbackZone
	}
	if view.Year == 0 || view.Month == 0 || view.Day == 0 {
		view = NewTimeView(view.Timestamp, zone)
	}

	clock := view.Time
	if clock == "" {
		clock = fmt.Sprintf("%02d:%02d", view.Hour, view.Minute)
	}

	now = now.In(zone)
	day := time.Date(view.Year, time.Month(view.Month), view.Day, 12, 0, 0, 0, zone)
	today := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, zone)

	if day.Equal(today) {
		return clock
	}
	if sameISOWeek(day, today) {
		return fmt.Sprintf("周%s %s", weekdayNames[isoWeekday(day.Weekday())], clock)
	}
	if view.Year == now.Year() {
		return fmt.Sprintf("%d月%d日 %s", view.Month, view.Day, clock)
	}
	return fmt.Sprintf("%d年%d月%d日 %s", view.Year, view.Month, view.Day, clock)
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

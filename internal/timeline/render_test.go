package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thousandtech/chatroom/internal/chat"
)

func TestRenderLabelsDividers(t *testing.T) {
	now := time.Date(2025, 5, 22, 20, 0, 0, 0, testZone)
	tl := New("alice", fixedNormalizer(now)).AppendBatch([]chat.RawMessage{
		raw("bob", "yesterday", time.Date(2025, 5, 21, 9, 30, 0, 0, testZone).Unix()),
		raw("alice", "today", time.Date(2025, 5, 22, 18, 52, 0, 0, testZone).Unix()),
	})

	lines := tl.Render(now)
	require.Len(t, lines, 4)
	require.Equal(t, KindDivider, lines[0].Kind)
	require.Equal(t, "周三 09:30", lines[0].Label)
	require.Equal(t, "bob", lines[1].Author)
	require.False(t, lines[1].Own)
	require.Equal(t, "18:52", lines[2].Label)
	require.True(t, lines[3].Own)

	// Labels follow the render time, not the time items were stored.
	later := now.AddDate(0, 1, 0)
	require.Equal(t, "5月22日 18:52", tl.Render(later)[2].Label)
}

func TestDiffAndAnchorAfterPrepend(t *testing.T) {
	prev := newTestTimeline("").AppendBatch([]chat.RawMessage{
		raw("a", "head", 1700000030),
		raw("a", "tail", 1700000300),
	})
	top := prev.Items()[0].ID

	next := prev.PrependBatch([]chat.RawMessage{
		raw("b", "older", 1699990000),
		raw("b", "merged", 1700000005),
	})
	change := Diff(prev, next)
	require.False(t, change.Reset)
	require.Equal(t, 1, change.Dropped)
	require.Equal(t, 4, change.Prepended)
	require.Zero(t, change.Appended)

	anchor := Anchor(prev, next, top)
	require.Equal(t, prev.Items()[1].ID, anchor)
	require.Equal(t, 4, next.IndexOf(anchor))
}

func TestDiffAppendAndReset(t *testing.T) {
	empty := newTestTimeline("")
	first := empty.AppendBatch([]chat.RawMessage{raw("a", "1", 1700000000)})
	require.Equal(t, Change{Appended: 2}, Diff(empty, first))

	second := first.AppendLive(raw("a", "2", 1700000100))
	require.Equal(t, Change{Appended: 2}, Diff(first, second))

	reset := second.Reset().AppendLive(raw("a", "3", 1700000200))
	change := Diff(second, reset)
	require.True(t, change.Reset)
	require.Equal(t, uint64(0), Anchor(second, reset, second.Items()[0].ID))
}

func TestAnchorKeepsSurvivingItem(t *testing.T) {
	prev := newTestTimeline("").AppendBatch([]chat.RawMessage{raw("a", "1", 1700000000)})
	next := prev.PrependBatch([]chat.RawMessage{raw("a", "0", 1690000000)})
	top := prev.Items()[0].ID
	require.Equal(t, top, Anchor(prev, next, top))
	require.Equal(t, uint64(0), Anchor(prev, next, 0))
}

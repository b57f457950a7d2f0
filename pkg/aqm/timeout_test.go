package aqm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeoutDropsOverdueHeadItems(t *testing.T) {
	to := NewTimeout(100) // T = 100ms
	seq := newFakeSeq(0, 10, 50, 200)

	dropped := to.OnTimeout(110, seq)

	require.Len(t, dropped, 2)
	require.Equal(t, int64(0), dropped[0].Item.StartMs)
	require.Equal(t, int64(10), dropped[1].Item.StartMs)
	require.Equal(t, 2, seq.Len())
}

func TestTimeoutLeavesNonOverdueItems(t *testing.T) {
	to := NewTimeout(100)
	seq := newFakeSeq(90)

	dropped := to.OnTimeout(100, seq)

	require.Empty(t, dropped)
	require.Equal(t, 1, seq.Len())
}

func TestTimeoutSkipsWorkBeforeNextDeadline(t *testing.T) {
	to := NewTimeout(100)
	seq := newFakeSeq(0)

	// First call arms next_deadline = head.start_time + T = 100.
	dropped := to.OnEnqueue(0, seq)
	require.Empty(t, dropped)
	require.Equal(t, int64(100), to.nextDeadline)

	// A call before the deadline must do nothing at all, even though the
	// item trivially isn't overdue yet either.
	dropped = to.OnDequeue(50, seq)
	require.Empty(t, dropped)
	require.Equal(t, 1, seq.Len())
}

func TestTimeoutOnJoinResetsDeadlineOnlyWhenEmpty(t *testing.T) {
	to := NewTimeout(100)
	to.nextDeadline = 500

	seq := newFakeSeq(10)
	to.OnJoin(20, seq)
	require.Equal(t, int64(500), to.nextDeadline, "non-empty queue leaves state untouched")

	empty := newFakeSeq()
	to.OnJoin(20, empty)
	require.Equal(t, int64(0), to.nextDeadline)
}

func TestTimeoutNextDeadlineWhenQueueDrainsToEmpty(t *testing.T) {
	to := NewTimeout(100)
	seq := newFakeSeq(0)

	dropped := to.OnTimeout(100, seq)
	require.Len(t, dropped, 1)
	require.Equal(t, int64(200), to.nextDeadline, "empty queue arms next_deadline = now + T")
}

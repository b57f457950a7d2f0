package aqm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoDelTimeoutToppedUpByHardDeadline(t *testing.T) {
	// T=50 is much tighter than CoDel's own 100ms interval, so the
	// backstop must force drops CoDel alone wouldn't have made yet.
	ct := NewCoDelTimeout(5, 100, 50)
	seq := newFakeSeq(0, 0, 0, 0, 0)

	dropped := ct.OnDequeue(60, seq)

	require.Len(t, dropped, 5, "every item is already overdue under timeout(T)")
	require.Equal(t, 0, seq.Len())
}

func TestCoDelTimeoutDoesNotDoubleCountCoDelDrops(t *testing.T) {
	// T is large enough that timeout(T) alone would drop nothing yet;
	// the only drops observed must come from CoDel's own schedule.
	ct := NewCoDelTimeout(5, 100, 10000)
	seq := newFakeSeq(0, 0, 0, 0, 0)

	dropped := ct.OnDequeue(10, seq)
	require.Empty(t, dropped)

	dropped = ct.OnDequeue(110, seq)
	require.Len(t, dropped, 1, "only CoDel's own first drop, no timeout top-up")
	require.Equal(t, 4, seq.Len())
}

func TestCoDelTimeoutOnJoinResetsEmbeddedController(t *testing.T) {
	ct := NewCoDelTimeout(5, 100, 50)
	seq := newFakeSeq(0, 0, 0, 0, 0)
	ct.OnDequeue(60, seq)

	ct.OnJoin(60, newFakeSeq())

	state := ct.CoDelState()
	require.False(t, state.Dropping)
	require.Equal(t, 0, state.Count)
}

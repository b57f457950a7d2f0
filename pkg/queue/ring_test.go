package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDequePushPopOrder(t *testing.T) {
	d := newDeque[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)

	v, ok := d.PopFront()
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 2, d.Len())
}

func TestDequeGrowsPastInitialCapacity(t *testing.T) {
	d := newDeque[int](2)
	for i := 0; i < 10; i++ {
		d.PushBack(i)
	}
	require.Equal(t, 10, d.Len())
	for i := 0; i < 10; i++ {
		v, ok := d.PopFront()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestDequePopBackServesMostRecent(t *testing.T) {
	d := newDeque[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)

	v, ok := d.PopBack()
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 2, d.Len())
}

func TestDequeRemoveAtMiddle(t *testing.T) {
	d := newDeque[int](8)
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}

	v, ok := d.RemoveAt(2)
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, []int{0, 1, 3, 4}, d.Slice())
}

func TestDequeRemoveAtSurvivesWrapAround(t *testing.T) {
	d := newDeque[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)
	_, _ = d.PopFront() // advances r, so the buffer is now wrapped internally
	d.PushBack(4)
	d.PushBack(5)

	v, ok := d.RemoveAt(1)
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, []int{2, 4, 5}, d.Slice())
}

func TestDequeAtAndFrontDoNotMutate(t *testing.T) {
	d := newDeque[int](4)
	d.PushBack(7)
	d.PushBack(8)

	v, ok := d.Front()
	require.True(t, ok)
	require.Equal(t, 7, v)

	v, ok = d.At(1)
	require.True(t, ok)
	require.Equal(t, 8, v)
	require.Equal(t, 2, d.Len())
}

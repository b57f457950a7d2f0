package aqm

import (
	"testing"

	"github.com/cyw0ng95/sojourn/pkg/item"
	"github.com/stretchr/testify/require"
)

// fakeSeq is a minimal slice-backed item.Sequence for exercising AQM
// strategies without depending on the real managed queue.
type fakeSeq struct {
	items []item.Item
}

func newFakeSeq(startMs ...int64) *fakeSeq {
	fs := &fakeSeq{}
	for i, ms := range startMs {
		fs.items = append(fs.items, item.Item{StartMs: ms, Handle: uint64(i + 1)})
	}
	return fs
}

func (fs *fakeSeq) Len() int { return len(fs.items) }

func (fs *fakeSeq) Front() (item.Item, bool) {
	if len(fs.items) == 0 {
		return item.Item{}, false
	}
	return fs.items[0], true
}

func (fs *fakeSeq) PopFront() (item.Item, bool) {
	if len(fs.items) == 0 {
		return item.Item{}, false
	}
	it := fs.items[0]
	fs.items = fs.items[1:]
	return it, true
}

func (fs *fakeSeq) At(i int) (item.Item, bool) {
	if i < 0 || i >= len(fs.items) {
		return item.Item{}, false
	}
	return fs.items[i], true
}

func TestNaiveNeverDrops(t *testing.T) {
	n := NewNaive()
	seq := newFakeSeq(0, 10, 20)

	require.Empty(t, n.OnEnqueue(100000, seq))
	require.Empty(t, n.OnDequeue(100000, seq))
	require.Empty(t, n.OnTimeout(100000, seq))
	require.Equal(t, 3, seq.Len())
}

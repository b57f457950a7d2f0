package queue

import (
	"github.com/cyw0ng95/sojourn/pkg/aqm"
	"github.com/cyw0ng95/sojourn/pkg/clock"
	"github.com/cyw0ng95/sojourn/pkg/item"
)

// OutMode selects which end of the queue ordinary (non-AQM) service drains
// from.
type OutMode int

const (
	// FIFO serves the oldest waiting item first.
	FIFO OutMode = iota
	// LIFO serves the most recently enqueued item first.
	LIFO
)

// DropMode selects what happens when Enqueue is called at capacity.
type DropMode int

const (
	// DropNewest rejects the arriving item, leaving the queue unchanged.
	DropNewest DropMode = iota
	// DropOldest evicts the current head to admit the arriving item.
	DropOldest
)

const initialRingSize = 16

// Managed is a capacity-bounded queue with a pluggable AQM discipline
// (component D of the design). AQM always observes and drops from the
// head via item.Sequence, independent of OutMode/DropMode, which only
// govern ordinary service and capacity overflow.
type Managed struct {
	clk      clock.Clock
	algo     aqm.Algorithm
	outMode  OutMode
	dropMode DropMode
	capacity int
	buf      *deque[item.Item]
}

// New constructs a managed queue. capacity must be a positive integer;
// validated by the caller's configuration layer.
func New(clk clock.Clock, algo aqm.Algorithm, outMode OutMode, dropMode DropMode, capacity int) *Managed {
	return &Managed{
		clk:      clk,
		algo:     algo,
		outMode:  outMode,
		dropMode: dropMode,
		capacity: capacity,
		buf:      newDeque[item.Item](initialRingSize),
	}
}

func (q *Managed) maybeJoin(nowMs int64) {
	if q.buf.Len() == 0 {
		q.algo.OnJoin(nowMs, q.buf)
	}
}

// Enqueue always appends it and runs the AQM discipline before ever
// considering capacity, giving AQM the chance to free room itself (e.g. an
// overdue head) before any capacity-driven eviction happens. Only if the
// buffer is still over capacity afterward does dropMode evict from its end,
// repeated until back at capacity. accepted is false iff it itself ends up
// being the item evicted for capacity (only possible under DropNewest).
// capacityDropped and aqmDropped are kept separate so a caller can
// categorize them under distinct drop reasons.
func (q *Managed) Enqueue(it item.Item) (capacityDropped, aqmDropped []item.Dropped, accepted bool) {
	now := q.clk.NowMs()

	q.buf.PushBack(it)
	aqmDropped = q.algo.OnEnqueue(now, q.buf)
	accepted = true

	for q.buf.Len() > q.capacity {
		var evicted item.Item
		var ok bool
		switch q.dropMode {
		case DropNewest:
			evicted, ok = q.buf.PopBack()
		case DropOldest:
			evicted, ok = q.buf.PopFront()
		}
		if !ok {
			break
		}
		capacityDropped = append(capacityDropped, item.Dropped{Item: evicted, Sojourn: now - evicted.StartMs})
		if evicted.Handle == it.Handle {
			accepted = false
		}
	}

	q.maybeJoin(now)
	return capacityDropped, aqmDropped, accepted
}

// Dequeue runs the AQM discipline and then serves one waiter per OutMode.
// ok is false iff nothing remained to serve after AQM drops ran.
func (q *Managed) Dequeue() (it item.Item, ok bool, dropped []item.Dropped) {
	now := q.clk.NowMs()
	dropped = q.algo.OnDequeue(now, q.buf)

	switch q.outMode {
	case LIFO:
		it, ok = q.buf.PopBack()
	default:
		it, ok = q.buf.PopFront()
	}

	q.maybeJoin(now)
	return it, ok, dropped
}

// Timeout runs the AQM discipline's periodic-tick hook without serving
// anyone. Driven by the broker's timer tick.
func (q *Managed) Timeout() []item.Dropped {
	now := q.clk.NowMs()
	dropped := q.algo.OnTimeout(now, q.buf)
	q.maybeJoin(now)
	return dropped
}

// Cancel removes the item with the given handle, wherever it sits in the
// queue. ok is false iff no item with that handle is present. Cancellation
// is a caller-initiated removal, never counted as an AQM or capacity drop.
func (q *Managed) Cancel(handle uint64) (it item.Item, ok bool) {
	for i := 0; i < q.buf.Len(); i++ {
		candidate, _ := q.buf.At(i)
		if candidate.Handle == handle {
			removed, _ := q.buf.RemoveAt(i)
			q.maybeJoin(q.clk.NowMs())
			return removed, true
		}
	}
	return it, false
}

// Len returns the number of items currently queued.
func (q *Managed) Len() int {
	return q.buf.Len()
}

// Peek returns the oldest item without removing it, for snapshotting.
func (q *Managed) Peek() (item.Item, bool) {
	return q.buf.Front()
}

// Algorithm returns the AQM discipline wired into this queue, for
// inspection (e.g. CoDel state in broker.Snapshot()).
func (q *Managed) Algorithm() aqm.Algorithm {
	return q.algo
}

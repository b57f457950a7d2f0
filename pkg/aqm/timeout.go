package aqm

import "github.com/cyw0ng95/sojourn/pkg/item"

// Timeout implements the timeout(T) strategy: an item is overdue once it
// has waited at least T milliseconds. All three mutating hooks route
// through decide, which drops overdue items from the head, in insertion
// order, until the head is no longer overdue or the sequence is empty.
type Timeout struct {
	t            int64
	nextDeadline int64
}

// NewTimeout constructs a timeout(T) strategy. T is milliseconds and must
// be a positive integer; validated by the caller's configuration layer.
func NewTimeout(t int64) *Timeout {
	return &Timeout{t: t}
}

func (to *Timeout) decide(nowMs int64, seq item.Sequence) []item.Dropped {
	if nowMs < to.nextDeadline {
		return nil
	}

	var dropped []item.Dropped
	for {
		it, ok := seq.Front()
		if !ok || nowMs-it.StartMs < to.t {
			break
		}
		popped, _ := seq.PopFront()
		dropped = append(dropped, item.Dropped{Item: popped, Sojourn: nowMs - popped.StartMs})
	}

	if it, ok := seq.Front(); ok {
		to.nextDeadline = it.StartMs + to.t
	} else {
		to.nextDeadline = nowMs + to.t
	}
	return dropped
}

// OnTimeout implements Algorithm.
func (to *Timeout) OnTimeout(nowMs int64, seq item.Sequence) []item.Dropped {
	return to.decide(nowMs, seq)
}

// OnEnqueue implements Algorithm.
func (to *Timeout) OnEnqueue(nowMs int64, seq item.Sequence) []item.Dropped {
	return to.decide(nowMs, seq)
}

// OnDequeue implements Algorithm.
func (to *Timeout) OnDequeue(nowMs int64, seq item.Sequence) []item.Dropped {
	return to.decide(nowMs, seq)
}

// OnJoin implements Algorithm. When the queue is empty there is no head to
// time out, so the armed deadline is cleared; otherwise state is left
// untouched.
func (to *Timeout) OnJoin(nowMs int64, seq item.Sequence) {
	if seq.Len() == 0 {
		to.nextDeadline = 0
	}
}

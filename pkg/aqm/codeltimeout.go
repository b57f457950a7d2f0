package aqm

import "github.com/cyw0ng95/sojourn/pkg/item"

// CoDelTimeout composes CoDel with a hard timeout(T) backstop: the
// controller runs as usual, but the total number of items dropped at a
// given decision point is never less than what timeout(T) alone would have
// dropped. This guarantees that no item already overdue under timeout(T)
// survives a decision point, even while CoDel is between dropping
// episodes; between decision points an item can wait past T.
type CoDelTimeout struct {
	codel *CoDel
	t     int64
}

// NewCoDelTimeout constructs the composed strategy. T must be strictly
// greater than target; validated by the caller's configuration layer.
func NewCoDelTimeout(target, interval, t int64) *CoDelTimeout {
	return &CoDelTimeout{codel: NewCoDel(target, interval), t: t}
}

// CoDelState returns the embedded CoDel controller's inspectable state.
func (ct *CoDelTimeout) CoDelState() State {
	return ct.codel.CoDelState()
}

// minDropCount counts, without removing anything, how many items at the
// head are already overdue under timeout(T).
func (ct *CoDelTimeout) minDropCount(nowMs int64, seq item.Sequence) int {
	n := 0
	for {
		it, ok := seq.At(n)
		if !ok || nowMs-it.StartMs < ct.t {
			break
		}
		n++
	}
	return n
}

func (ct *CoDelTimeout) decide(nowMs int64, seq item.Sequence) []item.Dropped {
	minCount := ct.minDropCount(nowMs, seq)
	dropped := ct.codel.decide(nowMs, seq)
	for len(dropped) < minCount {
		popped, ok := seq.PopFront()
		if !ok {
			break
		}
		dropped = append(dropped, item.Dropped{Item: popped, Sojourn: nowMs - popped.StartMs})
	}
	return dropped
}

// OnTimeout implements Algorithm.
func (ct *CoDelTimeout) OnTimeout(nowMs int64, seq item.Sequence) []item.Dropped {
	return ct.decide(nowMs, seq)
}

// OnEnqueue implements Algorithm.
func (ct *CoDelTimeout) OnEnqueue(nowMs int64, seq item.Sequence) []item.Dropped {
	return ct.decide(nowMs, seq)
}

// OnDequeue implements Algorithm.
func (ct *CoDelTimeout) OnDequeue(nowMs int64, seq item.Sequence) []item.Dropped {
	return ct.decide(nowMs, seq)
}

// OnJoin implements Algorithm.
func (ct *CoDelTimeout) OnJoin(nowMs int64, seq item.Sequence) {
	ct.codel.OnJoin(nowMs, seq)
}

package aqm

import (
	"math"

	"github.com/cyw0ng95/sojourn/pkg/item"
)

// CoDel implements the Controlled Delay controller: it tracks how long the
// head item has sojourned and only starts dropping once the sojourn has
// been at or above target for a full interval, then drops at an
// accelerating rate (interval/sqrt(count)) until the head drops back below
// target.
type CoDel struct {
	target   int64
	interval int64

	dropping     bool
	firstAboveMs int64 // 0 means "not currently above target"
	dropNext     int64
	count        int
	lastCount    int // count carried from the previous dropping episode
}

// NewCoDel constructs a CoDel controller. target and interval are
// milliseconds and must be positive; validated by the caller's
// configuration layer.
func NewCoDel(target, interval int64) *CoDel {
	return &CoDel{target: target, interval: interval}
}

// State is the inspectable snapshot of a CoDel controller, used by tests
// and broker.Snapshot().
type State struct {
	Dropping     bool
	Count        int
	DropNextMs   int64
	FirstAboveMs int64
}

// CoDelState returns the controller's current inspectable state.
func (c *CoDel) CoDelState() State {
	return State{
		Dropping:     c.dropping,
		Count:        c.count,
		DropNextMs:   c.dropNext,
		FirstAboveMs: c.firstAboveMs,
	}
}

func (c *CoDel) controlLaw(t int64) int64 {
	return t + int64(float64(c.interval)/math.Sqrt(float64(c.count)))
}

func (c *CoDel) decide(nowMs int64, seq item.Sequence) []item.Dropped {
	var dropped []item.Dropped

	okToDrop := c.aboveTarget(nowMs, seq)

	if c.dropping {
		for okToDrop && nowMs >= c.dropNext {
			popped, ok := seq.PopFront()
			if !ok {
				c.dropping = false
				break
			}
			dropped = append(dropped, item.Dropped{Item: popped, Sojourn: nowMs - popped.StartMs})
			c.count++
			c.dropNext = c.controlLaw(c.dropNext)
			okToDrop = c.aboveTarget(nowMs, seq)
		}
		if !okToDrop {
			c.dropping = false
			c.lastCount = c.count
		}
	} else if okToDrop {
		popped, ok := seq.PopFront()
		if ok {
			dropped = append(dropped, item.Dropped{Item: popped, Sojourn: nowMs - popped.StartMs})
			c.dropping = true
			if c.lastCount > 2 && nowMs-c.dropNext < c.interval {
				c.count = c.lastCount - 2
			} else {
				c.count = 1
			}
			c.dropNext = c.controlLaw(nowMs)
		}
	}

	return dropped
}

// aboveTarget inspects (without removing) the current head and updates
// firstAboveMs bookkeeping, returning whether the head has now been at or
// above target for a full interval.
func (c *CoDel) aboveTarget(nowMs int64, seq item.Sequence) bool {
	it, ok := seq.Front()
	if !ok || nowMs-it.StartMs < c.target {
		c.firstAboveMs = 0
		return false
	}
	if c.firstAboveMs == 0 {
		c.firstAboveMs = nowMs + c.interval
		return false
	}
	return nowMs >= c.firstAboveMs
}

// OnTimeout implements Algorithm.
func (c *CoDel) OnTimeout(nowMs int64, seq item.Sequence) []item.Dropped {
	return c.decide(nowMs, seq)
}

// OnEnqueue implements Algorithm.
func (c *CoDel) OnEnqueue(nowMs int64, seq item.Sequence) []item.Dropped {
	return c.decide(nowMs, seq)
}

// OnDequeue implements Algorithm.
func (c *CoDel) OnDequeue(nowMs int64, seq item.Sequence) []item.Dropped {
	return c.decide(nowMs, seq)
}

// OnJoin implements Algorithm: resets the controller to the non-dropping
// state.
func (c *CoDel) OnJoin(nowMs int64, seq item.Sequence) {
	c.dropping = false
	c.firstAboveMs = 0
	c.count = 0
	c.dropNext = 0
}

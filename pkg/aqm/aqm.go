// Package aqm implements the pluggable active-queue-management strategies
// (component C of the design): naive, timeout, codel and codel_timeout.
// Every strategy exposes the same four-hook contract over a queue's
// oldest items (item.Sequence) and is safe to call repeatedly with the
// same (now, sequence) pair — on_enqueue, on_dequeue and on_timeout all
// route through one decision routine per algorithm, so repeated calls at
// an unchanged instant produce identical drop decisions (spec.md §9, open
// question).
package aqm

import "github.com/cyw0ng95/sojourn/pkg/item"

// Algorithm is the uniform operation table every AQM strategy implements.
// Implementations hold their own state; Init happens in the constructor.
type Algorithm interface {
	// OnTimeout is invoked by the broker's periodic timer tick.
	OnTimeout(nowMs int64, seq item.Sequence) []item.Dropped
	// OnEnqueue is invoked after a new item has been appended to seq.
	OnEnqueue(nowMs int64, seq item.Sequence) []item.Dropped
	// OnDequeue is invoked before a waiter is served from seq.
	OnDequeue(nowMs int64, seq item.Sequence) []item.Dropped
	// OnJoin is the reset hook run when a queue transitions to/through
	// empty as a whole. Never drops.
	OnJoin(nowMs int64, seq item.Sequence)
}

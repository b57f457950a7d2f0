package broker

import "sync"

// dropLedger is an in-memory, non-replaying bookkeeping of every drop this
// broker has issued, categorized by side and reason. Generalized from the
// teacher's dead-letter queue: unlike a DLQ, this never retries or
// persists anything, because a sojourn broker's drop outcome is terminal
// by design — the ledger exists purely for observability
// (broker.Snapshot()), not recovery.
type dropLedger struct {
	mu     sync.Mutex
	counts map[Side]map[DropReason]int64
}

func newDropLedger() *dropLedger {
	return &dropLedger{
		counts: map[Side]map[DropReason]int64{
			Ask:  make(map[DropReason]int64),
			AskR: make(map[DropReason]int64),
		},
	}
}

func (l *dropLedger) record(side Side, reason DropReason) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[side][reason]++
}

// snapshot returns a copy of the current counts for one side.
func (l *dropLedger) snapshot(side Side) map[DropReason]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[DropReason]int64, len(l.counts[side]))
	for k, v := range l.counts[side] {
		out[k] = v
	}
	return out
}

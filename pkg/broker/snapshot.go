package broker

import (
	"github.com/cyw0ng95/sojourn/pkg/aqm"
	"github.com/cyw0ng95/sojourn/pkg/queue"
)

// SideSnapshot is one side's observable state at the moment Snapshot was
// taken.
type SideSnapshot struct {
	Len   int
	Drops map[DropReason]int64
	CoDel *aqm.State // nil unless this side runs codel or codel_timeout
}

// Snapshot is the broker's introspection payload (§SUPPLEMENTED FEATURES):
// neither spec.md nor the system it was distilled from specifies one, but
// a long-lived broker with pluggable AQM needs one to be operable.
type Snapshot struct {
	Ask  SideSnapshot
	AskR SideSnapshot
}

func (b *Broker) buildSnapshot() Snapshot {
	return Snapshot{
		Ask:  b.sideSnapshot(Ask, b.askQ),
		AskR: b.sideSnapshot(AskR, b.askrQ),
	}
}

func (b *Broker) sideSnapshot(side Side, q *queue.Managed) SideSnapshot {
	return SideSnapshot{
		Len:   q.Len(),
		Drops: b.ledger.snapshot(side),
		CoDel: algorithmState(q.Algorithm()),
	}
}

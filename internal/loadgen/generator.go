package loadgen

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cyw0ng95/sojourn/pkg/broker"
)

// Stats is the cumulative outcome tally a Generator reports, split by
// side and by matched/dropped so scenario 6 (symmetric matching keeps
// both queues near-empty under balanced load) can be checked by watching
// the two sides' matched counts converge.
type Stats struct {
	AskMatched, AskDropped   int64
	AskRMatched, AskRDropped int64
}

// Generator floods a broker with concurrent Ask/AskR calls at a fixed
// rate per side, tallying outcomes as they resolve.
type Generator struct {
	b     *broker.Broker
	pool  *Pool
	stats Stats
}

// NewGenerator builds a Generator backed by workers workers submitting
// into b, queueDepth deep.
func NewGenerator(ctx context.Context, b *broker.Broker, workers, queueDepth int) *Generator {
	return &Generator{b: b, pool: NewPool(ctx, workers, queueDepth)}
}

// Run submits one ask and one ask_r call per tick, at the given rate per
// side, until ctx is done. It blocks until ctx is done and the pool has
// drained its in-flight work.
func (g *Generator) Run(ctx context.Context, ratePerSide time.Duration) {
	ticker := time.NewTicker(ratePerSide)
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case <-ctx.Done():
			g.pool.Stop()
			return
		case <-ticker.C:
			n := atomic.AddInt64(&seq, 1)
			g.pool.Submit(ctx, func(taskCtx context.Context) {
				oc, err := g.b.Ask(taskCtx, n)
				if err != nil {
					return
				}
				g.record(broker.Ask, oc)
			})
			g.pool.Submit(ctx, func(taskCtx context.Context) {
				oc, err := g.b.AskR(taskCtx, n)
				if err != nil {
					return
				}
				g.record(broker.AskR, oc)
			})
		}
	}
}

func (g *Generator) record(side broker.Side, oc broker.Outcome) {
	matched := oc.Kind == broker.OutcomeMatched
	switch side {
	case broker.Ask:
		if matched {
			atomic.AddInt64(&g.stats.AskMatched, 1)
		} else {
			atomic.AddInt64(&g.stats.AskDropped, 1)
		}
	case broker.AskR:
		if matched {
			atomic.AddInt64(&g.stats.AskRMatched, 1)
		} else {
			atomic.AddInt64(&g.stats.AskRDropped, 1)
		}
	}
}

// Snapshot returns a copy of the cumulative stats gathered so far.
func (g *Generator) Snapshot() Stats {
	return Stats{
		AskMatched:   atomic.LoadInt64(&g.stats.AskMatched),
		AskDropped:   atomic.LoadInt64(&g.stats.AskDropped),
		AskRMatched:  atomic.LoadInt64(&g.stats.AskRMatched),
		AskRDropped:  atomic.LoadInt64(&g.stats.AskRDropped),
	}
}

// Issued reports how many tasks the underlying pool has accepted so far.
func (g *Generator) Issued() int64 { return g.pool.Issued() }

// Drained reports how many tasks the underlying pool has finished.
func (g *Generator) Drained() int64 { return g.pool.Drained() }

// Package broker implements the sojourn broker: a single-threaded,
// cooperative actor that matches ask/ask_r requests into pairs while
// running pluggable active queue management on each side.
package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cyw0ng95/sojourn/pkg/aqm"
	"github.com/cyw0ng95/sojourn/pkg/clock"
	"github.com/cyw0ng95/sojourn/pkg/item"
	"github.com/cyw0ng95/sojourn/pkg/liveness"
	"github.com/cyw0ng95/sojourn/pkg/queue"
)

// ErrShutdown is returned by any call made against (or still in flight
// when) a broker that has finished shutting down.
var ErrShutdown = errors.New("broker: shut down")

// waiterInfo is the actor-owned bookkeeping for one still-waiting party.
// Only ever touched from within run(), so it needs no locking.
type waiterInfo struct {
	side    Side
	token   liveness.Token
	tag     any
	isAsync bool
	reply   chan Outcome
}

// Broker is the sojourn broker actor. All exported methods are safe to
// call from any goroutine; they only ever communicate with the single
// owning goroutine through the mailbox.
type Broker struct {
	cfg Config
	clk clock.Clock
	log *Logger

	mbox         *mailbox
	live         *liveness.Watcher
	ledger       *dropLedger
	asyncResults chan AsyncOutcome
	closed       chan struct{}
	wg           sync.WaitGroup

	// actor-owned; read/written only inside run().
	askQ        *queue.Managed
	askrQ       *queue.Managed
	waiters     map[uint64]*waiterInfo
	nextHandle  uint64
	terminating bool
}

// New validates cfg and constructs a running Broker. Invalid configuration
// is the only error New returns. Once constructed, matches and drops are
// delivered as Outcome values; the request methods return an error only
// when the caller's ctx ends first or the broker has shut down
// (ErrShutdown).
func New(cfg Config, clk clock.Clock, log *Logger) (*Broker, error) {
	if cfgErr := cfg.Validate(); cfgErr != nil {
		return nil, cfgErr
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = NewNopLogger()
	}

	b := &Broker{
		cfg:          cfg,
		clk:          clk,
		log:          log,
		mbox:         newMailbox(64),
		live:         liveness.NewWatcher(),
		ledger:       newDropLedger(),
		asyncResults: make(chan AsyncOutcome, cfg.AsyncResultsBuffer),
		closed:       make(chan struct{}),
		waiters:      make(map[uint64]*waiterInfo),
		askQ:         queue.New(clk, cfg.Ask.buildAlgorithm(), cfg.Ask.outModeValue(), cfg.Ask.dropModeValue(), cfg.Ask.Capacity),
		askrQ:        queue.New(clk, cfg.AskR.buildAlgorithm(), cfg.AskR.outModeValue(), cfg.AskR.dropModeValue(), cfg.AskR.Capacity),
	}

	b.wg.Add(1)
	go b.run()
	return b, nil
}

func (b *Broker) queueFor(side Side) *queue.Managed {
	if side == Ask {
		return b.askQ
	}
	return b.askrQ
}

// Results returns the stream async Ask/AskR callers' outcomes arrive on.
func (b *Broker) Results() <-chan AsyncOutcome {
	return b.asyncResults
}

// Ask enqueues a synchronous "ask" request and blocks until it is matched,
// dropped, or ctx is cancelled first (in which case the request is
// cancelled on the caller's behalf and ctx.Err() is returned).
func (b *Broker) Ask(ctx context.Context, tag any) (Outcome, error) {
	return b.ask(ctx, Ask, tag)
}

// AskR is the reciprocal of Ask.
func (b *Broker) AskR(ctx context.Context, tag any) (Outcome, error) {
	return b.ask(ctx, AskR, tag)
}

func (b *Broker) ask(ctx context.Context, side Side, tag any) (Outcome, error) {
	reply := make(chan Outcome, 1)
	handleCh := make(chan uint64, 1)
	cmd := command{kind: cmdEnqueue, side: side, tag: tag, peerCtx: ctx, reply: reply, handle: handleCh}

	if err := b.mbox.send(ctx, cmd); err != nil {
		return Outcome{}, err
	}

	var handle uint64
	select {
	case handle = <-handleCh:
	case <-b.closed:
		return Outcome{}, ErrShutdown
	}

	select {
	case oc := <-reply:
		return oc, nil
	case <-ctx.Done():
		_, _ = b.Cancel(handle)
		select {
		case oc := <-reply:
			return oc, nil
		default:
			return Outcome{}, ctx.Err()
		}
	case <-b.closed:
		return Outcome{}, ErrShutdown
	}
}

// AsyncAsk enqueues an "ask" request and returns its correlation handle
// immediately; the eventual Outcome arrives on Results(), tagged with tag
// and this handle. ctx governs liveness only: if it's cancelled while
// still waiting, the request is silently removed (not counted as a drop).
func (b *Broker) AsyncAsk(ctx context.Context, tag any) (uint64, error) {
	return b.asyncAsk(ctx, Ask, tag)
}

// AsyncAskR is the reciprocal of AsyncAsk.
func (b *Broker) AsyncAskR(ctx context.Context, tag any) (uint64, error) {
	return b.asyncAsk(ctx, AskR, tag)
}

func (b *Broker) asyncAsk(ctx context.Context, side Side, tag any) (uint64, error) {
	handleCh := make(chan uint64, 1)
	cmd := command{kind: cmdEnqueue, side: side, tag: tag, peerCtx: ctx, isAsync: true, handle: handleCh}

	if err := b.mbox.send(ctx, cmd); err != nil {
		return 0, err
	}

	select {
	case handle := <-handleCh:
		return handle, nil
	case <-b.closed:
		return 0, ErrShutdown
	}
}

// Cancel removes a still-waiting request by its correlation handle. ok is
// false iff the handle is unknown, already resolved, or the broker has
// shut down. Cancellation is never recorded as a drop.
func (b *Broker) Cancel(handle uint64) (bool, error) {
	reply := make(chan bool, 1)
	cmd := command{kind: cmdCancel, cancelHandle: handle, cancelReply: reply}

	ctx := context.Background()
	if err := b.mbox.send(ctx, cmd); err != nil {
		return false, err
	}

	select {
	case ok := <-reply:
		return ok, nil
	case <-b.closed:
		return false, nil
	}
}

// Snapshot returns the broker's instantaneous observable state: both
// queues' depth, per-side drop counts and CoDel controller state where
// applicable.
func (b *Broker) Snapshot() (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	cmd := command{kind: cmdSnapshot, snapshotReply: reply}

	ctx := context.Background()
	if err := b.mbox.send(ctx, cmd); err != nil {
		return Snapshot{}, err
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-b.closed:
		return Snapshot{}, ErrShutdown
	}
}

// Shutdown transitions the broker to its terminating state: every waiting
// party (sync or async, on either side) is immediately delivered a
// DropReasonShutdown outcome with its current sojourn, then the actor
// loop and liveness watcher stop. Safe to call once; ctx bounds how long
// the caller is willing to wait for the drain to finish.
func (b *Broker) Shutdown(ctx context.Context) error {
	reply := make(chan struct{})
	cmd := command{kind: cmdShutdown, shutdownReply: reply}

	if err := b.mbox.send(ctx, cmd); err != nil {
		return err
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(time.Duration(b.cfg.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-b.mbox.receive():
			b.mbox.recordReceived()
			b.handleCommand(cmd)
			if cmd.kind == cmdShutdown {
				return
			}
		case <-ticker.C:
			b.onTick()
		case tok := <-b.live.Died():
			b.onPeerDied(tok)
		}
	}
}

func (b *Broker) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdEnqueue:
		b.onEnqueue(cmd)
	case cmdCancel:
		b.onCancel(cmd)
	case cmdSnapshot:
		cmd.snapshotReply <- b.buildSnapshot()
	case cmdShutdown:
		b.onShutdown(cmd)
	}
}

func (b *Broker) issueHandle() uint64 {
	b.nextHandle++
	return b.nextHandle
}

func (b *Broker) onEnqueue(cmd command) {
	handle := b.issueHandle()
	cmd.handle <- handle

	if b.terminating {
		b.ledger.record(cmd.side, DropReasonShutdown)
		b.deliverDirect(handle, cmd, Outcome{Kind: OutcomeDropped, Reason: DropReasonShutdown})
		return
	}

	now := b.clk.NowMs()
	opposite := cmd.side.other()
	oppQ := b.queueFor(opposite)

	if oppQ.Len() > 0 {
		passive, ok, drops := oppQ.Dequeue()
		b.recordAQMDrops(opposite, drops)
		if ok {
			ref := newMatchRef()
			b.deliverToHandle(passive.Handle, Outcome{Kind: OutcomeMatched, Ref: ref, SojournMs: now - passive.StartMs})
			b.deliverDirect(handle, cmd, Outcome{Kind: OutcomeMatched, Ref: ref, SojournMs: 0})
			b.log.Info("matched", map[string]any{
				"ref": ref, "active_side": cmd.side.String(), "passive_handle": passive.Handle, "active_handle": handle,
			})
			return
		}
	}

	myQ := b.queueFor(cmd.side)
	token := b.live.Observe(cmd.peerCtx)
	it := item.Item{StartMs: now, Handle: handle, Peer: token, Tag: cmd.tag}
	capDropped, aqmDropped, accepted := myQ.Enqueue(it)
	b.recordCapacityDrops(cmd.side, capDropped)
	b.recordAQMDrops(cmd.side, aqmDropped)

	if !accepted {
		b.live.Forget(token)
		b.deliverDirect(handle, cmd, Outcome{Kind: OutcomeDropped, Reason: DropReasonCapacity})
		return
	}

	b.waiters[handle] = &waiterInfo{side: cmd.side, token: token, tag: cmd.tag, isAsync: cmd.isAsync, reply: cmd.reply}
}

func (b *Broker) onCancel(cmd command) {
	w, ok := b.waiters[cmd.cancelHandle]
	if !ok {
		cmd.cancelReply <- false
		return
	}
	_, removed := b.queueFor(w.side).Cancel(cmd.cancelHandle)
	if !removed {
		cmd.cancelReply <- false
		return
	}
	delete(b.waiters, cmd.cancelHandle)
	b.live.Forget(w.token)
	cmd.cancelReply <- true
}

func (b *Broker) onTick() {
	b.recordAQMDrops(Ask, b.askQ.Timeout())
	b.recordAQMDrops(AskR, b.askrQ.Timeout())
}

func (b *Broker) onPeerDied(tok liveness.Token) {
	for handle, w := range b.waiters {
		if w.token == tok {
			b.queueFor(w.side).Cancel(handle)
			delete(b.waiters, handle)
			return
		}
	}
}

func (b *Broker) onShutdown(cmd command) {
	b.terminating = true
	now := b.clk.NowMs()

	for handle, w := range b.waiters {
		it, removed := b.queueFor(w.side).Cancel(handle)
		sojourn := int64(0)
		if removed {
			sojourn = now - it.StartMs
		}
		b.ledger.record(w.side, DropReasonShutdown)
		b.live.Forget(w.token)
		if w.isAsync {
			b.publishAsync(handle, w.tag, Outcome{Kind: OutcomeDropped, Reason: DropReasonShutdown, SojournMs: sojourn})
		} else if w.reply != nil {
			select {
			case w.reply <- Outcome{Kind: OutcomeDropped, Reason: DropReasonShutdown, SojournMs: sojourn}:
			default:
			}
		}
		delete(b.waiters, handle)
	}

	close(b.closed)
	b.live.Close()
	close(b.asyncResults)
	cmd.shutdownReply <- struct{}{}
}

// deliverDirect resolves the command that was just processed (the active
// side of a match, a capacity/shutdown drop for the arriving party, or
// nothing if it was enqueued to wait).
func (b *Broker) deliverDirect(handle uint64, cmd command, oc Outcome) {
	if cmd.isAsync {
		b.publishAsync(handle, cmd.tag, oc)
		return
	}
	if cmd.reply != nil {
		select {
		case cmd.reply <- oc:
		default:
		}
	}
}

// deliverToHandle resolves a previously-waiting party (the passive side
// of a match, or a later AQM/timeout drop) looked up by handle.
func (b *Broker) deliverToHandle(handle uint64, oc Outcome) {
	w, ok := b.waiters[handle]
	if !ok {
		return
	}
	delete(b.waiters, handle)
	b.live.Forget(w.token)
	if w.isAsync {
		b.publishAsync(handle, w.tag, oc)
		return
	}
	if w.reply != nil {
		select {
		case w.reply <- oc:
		default:
		}
	}
}

func (b *Broker) publishAsync(handle uint64, tag any, oc Outcome) {
	select {
	case b.asyncResults <- AsyncOutcome{Handle: handle, Tag: tag, Outcome: oc}:
	default:
		b.log.Warn("async results channel full, dropping notification", map[string]any{"handle": handle})
	}
}

// dropReasonFor maps a side's configured discipline to the reason its AQM
// hooks' drops are attributed to. codel_timeout's only hard guarantee is
// the timeout(T) floor, so its drops are categorized as timeout; a pure
// codel discipline's drops are categorized as codel.
func (b *Broker) dropReasonFor(side Side) DropReason {
	spec := b.cfg.Ask
	if side == AskR {
		spec = b.cfg.AskR
	}
	switch spec.Discipline {
	case DisciplineCoDel:
		return DropReasonCoDel
	case DisciplineTimeout, DisciplineCoDelTimeout:
		return DropReasonTimeout
	default:
		return DropReasonCoDel
	}
}

func (b *Broker) recordAQMDrops(side Side, drops []item.Dropped) {
	if len(drops) == 0 {
		return
	}
	reason := b.dropReasonFor(side)
	for _, d := range drops {
		b.ledger.record(side, reason)
		b.deliverToHandle(d.Item.Handle, Outcome{Kind: OutcomeDropped, Reason: reason, SojournMs: d.Sojourn})
	}
}

func (b *Broker) recordCapacityDrops(side Side, drops []item.Dropped) {
	for _, d := range drops {
		b.ledger.record(side, DropReasonCapacity)
		b.deliverToHandle(d.Item.Handle, Outcome{Kind: OutcomeDropped, Reason: DropReasonCapacity, SojournMs: d.Sojourn})
	}
}

// algorithmState exposes CoDel inspection for Snapshot, nil for
// disciplines with no such state.
func algorithmState(a aqm.Algorithm) *aqm.State {
	switch v := a.(type) {
	case interface{ CoDelState() aqm.State }:
		s := v.CoDelState()
		return &s
	default:
		return nil
	}
}

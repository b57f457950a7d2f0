package broker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// cmdKind distinguishes the handful of operations the broker's single
// actor goroutine accepts over its mailbox.
type cmdKind int

const (
	cmdEnqueue cmdKind = iota
	cmdCancel
	cmdSnapshot
	cmdShutdown
)

// command is the one message type the actor loop ever receives, grounded
// on the teacher's message-bus envelope shape (a single struct carrying
// every field a command of any kind might need, rather than an interface
// hierarchy) — appropriate here since there are exactly four commands and
// none of them carry a variable-length payload.
type command struct {
	kind cmdKind

	// cmdEnqueue
	side    Side
	tag     any
	peerCtx context.Context
	isAsync bool
	reply   chan Outcome
	handle  chan uint64

	// cmdCancel
	cancelHandle uint64
	cancelReply  chan bool

	// cmdSnapshot
	snapshotReply chan Snapshot

	// cmdShutdown
	shutdownReply chan struct{}
}

// mailboxStats mirrors the teacher's per-bus message counters, generalized
// from request/response/event categories down to the two that matter for
// a command queue.
type mailboxStats struct {
	mu       sync.Mutex
	sent     int64
	received int64
}

// mailbox is a buffered command channel with basic send/receive
// bookkeeping, adapted from the teacher's mq.Bus down to exactly the one
// consumer (the broker's actor loop) and one message type this package
// needs.
type mailbox struct {
	ch    chan command
	stats mailboxStats
}

func newMailbox(buffer int) *mailbox {
	return &mailbox{ch: make(chan command, buffer)}
}

// send places cmd in the buffered channel, blocking while the buffer is
// full until there is room or ctx is done first.
func (m *mailbox) send(ctx context.Context, cmd command) error {
	select {
	case m.ch <- cmd:
		m.stats.mu.Lock()
		m.stats.sent++
		m.stats.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive is used only by the actor's run loop.
func (m *mailbox) receive() <-chan command {
	return m.ch
}

func (m *mailbox) recordReceived() {
	m.stats.mu.Lock()
	m.stats.received++
	m.stats.mu.Unlock()
}

// newMatchRef issues the shared reference both peers of a match receive,
// identical on both sides, per the correlation model (component B/F).
func newMatchRef() string {
	return uuid.NewString()
}

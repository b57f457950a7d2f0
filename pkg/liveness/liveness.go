// Package liveness implements the capability the broker actor uses to
// learn, asynchronously, that a waiting caller has died without having to
// block or poll for it inline. Grounded on the worker pool's
// context/cancel/WaitGroup goroutine lifecycle (pkg/common/workerpool),
// generalized from "stop a worker" to "watch one peer's context".
package liveness

import (
	"context"
	"sync"
)

// Token identifies one observed peer. Tokens are never reused.
type Token uint64

// Watcher observes peer contexts and reports, on a single channel, the
// token of any observed peer whose context has been cancelled. The
// broker's single-threaded actor loop drains Died() alongside its other
// event sources and treats a delivered token as "silently remove this
// waiter, not an AQM drop" per the liveness capability contract.
type Watcher struct {
	mu      sync.Mutex
	next    uint64
	watches map[Token]context.CancelFunc
	died    chan Token
	wg      sync.WaitGroup
	closed  bool
}

// NewWatcher constructs a Watcher. died is buffered (256 tokens) so a
// burst of peer deaths does not block watch goroutines on a slow-draining
// owner until more than 256 deliveries are pending.
func NewWatcher() *Watcher {
	return &Watcher{
		watches: make(map[Token]context.CancelFunc),
		died:    make(chan Token, 256),
	}
}

// Observe starts watching peer and returns a token that will be delivered
// on Died() if and when peer.Done() fires, unless Forget is called first.
func (w *Watcher) Observe(peer context.Context) Token {
	w.mu.Lock()
	w.next++
	tok := Token(w.next)
	stopCtx, stop := context.WithCancel(context.Background())
	w.watches[tok] = stop
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watch(tok, peer, stopCtx)
	return tok
}

func (w *Watcher) watch(tok Token, peer context.Context, stopCtx context.Context) {
	defer w.wg.Done()
	select {
	case <-peer.Done():
		w.mu.Lock()
		_, stillWatching := w.watches[tok]
		delete(w.watches, tok)
		w.mu.Unlock()
		if stillWatching {
			select {
			case w.died <- tok:
			case <-stopCtx.Done():
			}
		}
	case <-stopCtx.Done():
	}
}

// Forget stops watching a token without ever delivering it on Died(). Used
// once a waiter has matched, cancelled, or been dropped through some other
// path, so a later peer death doesn't also surface as a liveness event.
func (w *Watcher) Forget(tok Token) {
	w.mu.Lock()
	stop, ok := w.watches[tok]
	if ok {
		delete(w.watches, tok)
	}
	w.mu.Unlock()
	if ok {
		stop()
	}
}

// Died returns the channel of tokens for peers observed to have died.
func (w *Watcher) Died() <-chan Token {
	return w.died
}

// Close stops every outstanding watch and waits for their goroutines to
// exit before closing Died(). Safe to call once.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for tok, stop := range w.watches {
		stop()
		delete(w.watches, tok)
	}
	w.mu.Unlock()

	w.wg.Wait()
	close(w.died)
}

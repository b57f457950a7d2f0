package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsDeadPeer(t *testing.T) {
	w := NewWatcher()
	defer w.Close()

	peerCtx, cancel := context.WithCancel(context.Background())
	tok := w.Observe(peerCtx)

	cancel()

	select {
	case got := <-w.Died():
		require.Equal(t, tok, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for death notification")
	}
}

func TestWatcherForgetSuppressesNotification(t *testing.T) {
	w := NewWatcher()
	defer w.Close()

	peerCtx, cancel := context.WithCancel(context.Background())
	tok := w.Observe(peerCtx)
	w.Forget(tok)
	cancel()

	select {
	case got := <-w.Died():
		t.Fatalf("unexpected death notification for forgotten token %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherTokensAreUnique(t *testing.T) {
	w := NewWatcher()
	defer w.Close()

	ctx := context.Background()
	a := w.Observe(ctx)
	b := w.Observe(ctx)

	require.NotEqual(t, a, b)
}

func TestWatcherCloseStopsOutstandingWatches(t *testing.T) {
	w := NewWatcher()
	peerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Observe(peerCtx)

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return promptly")
	}
}

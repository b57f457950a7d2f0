package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	spec := QueueSpec{Discipline: DisciplineNaive, OutMode: "fifo", DropMode: "drop_oldest", Capacity: 4}
	return Config{
		Ask:                spec,
		AskR:               spec,
		TickIntervalMs:      10,
		ShutdownTimeoutMs:   1000,
		AsyncResultsBuffer:  16,
	}
}

func TestBasicFIFOMatch(t *testing.T) {
	b, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	defer b.Shutdown(context.Background())

	var askOutcome, askrOutcome Outcome
	var askErr, askrErr error
	done := make(chan struct{})

	go func() {
		askOutcome, askErr = b.Ask(context.Background(), "asker")
		close(done)
	}()

	// give the Ask a moment to land in the actor's mailbox and enqueue.
	time.Sleep(20 * time.Millisecond)

	askrOutcome, askrErr = b.AskR(context.Background(), "asker-r")

	<-done
	require.NoError(t, askErr)
	require.NoError(t, askrErr)
	require.Equal(t, OutcomeMatched, askOutcome.Kind)
	require.Equal(t, OutcomeMatched, askrOutcome.Kind)
	require.Equal(t, askOutcome.Ref, askrOutcome.Ref)
	require.NotEmpty(t, askOutcome.Ref)
}

func TestCancelBeforeMatch(t *testing.T) {
	b, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	defer b.Shutdown(context.Background())

	handle, err := b.AsyncAsk(context.Background(), "tag")
	require.NoError(t, err)

	ok, err := b.Cancel(handle)
	require.NoError(t, err)
	require.True(t, ok)

	snap, err := b.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 0, snap.Ask.Len)

	ok, err = b.Cancel(handle)
	require.NoError(t, err)
	require.False(t, ok, "cancelling twice must fail the second time")
}

func TestCapacityOverflowDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.Ask.Capacity = 1
	cfg.Ask.DropMode = "drop_oldest"
	b, err := New(cfg, nil, nil)
	require.NoError(t, err)
	defer b.Shutdown(context.Background())

	h1, err := b.AsyncAsk(context.Background(), "first")
	require.NoError(t, err)
	_, err = b.AsyncAsk(context.Background(), "second")
	require.NoError(t, err)

	select {
	case oc := <-b.Results():
		require.Equal(t, h1, oc.Handle)
		require.Equal(t, OutcomeDropped, oc.Kind)
		require.Equal(t, DropReasonCapacity, oc.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected a capacity-drop notification")
	}
}

func TestTimeoutDiscipline(t *testing.T) {
	cfg := testConfig()
	cfg.Ask.Discipline = DisciplineTimeout
	cfg.Ask.TimeoutMs = 30
	cfg.TickIntervalMs = 10
	b, err := New(cfg, nil, nil)
	require.NoError(t, err)
	defer b.Shutdown(context.Background())

	handle, err := b.AsyncAsk(context.Background(), "lonely")
	require.NoError(t, err)

	select {
	case oc := <-b.Results():
		require.Equal(t, handle, oc.Handle)
		require.Equal(t, OutcomeDropped, oc.Kind)
		require.Equal(t, DropReasonTimeout, oc.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a timeout drop within two seconds")
	}
}

func TestAsyncAskThenAskRMatches(t *testing.T) {
	b, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	defer b.Shutdown(context.Background())

	handle, err := b.AsyncAsk(context.Background(), "waiting")
	require.NoError(t, err)

	askrOutcome, err := b.AskR(context.Background(), "active")
	require.NoError(t, err)
	require.Equal(t, OutcomeMatched, askrOutcome.Kind)

	select {
	case oc := <-b.Results():
		require.Equal(t, handle, oc.Handle)
		require.Equal(t, OutcomeMatched, oc.Kind)
		require.Equal(t, askrOutcome.Ref, oc.Ref)
	case <-time.After(time.Second):
		t.Fatal("expected the waiting async ask to be matched")
	}
}

func TestShutdownDropsOutstandingWaiters(t *testing.T) {
	b, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	handle, err := b.AsyncAsk(context.Background(), "orphan")
	require.NoError(t, err)

	require.NoError(t, b.Shutdown(context.Background()))

	oc, ok := <-b.Results()
	require.True(t, ok)
	require.Equal(t, handle, oc.Handle)
	require.Equal(t, OutcomeDropped, oc.Kind)
	require.Equal(t, DropReasonShutdown, oc.Reason)
}

func TestConfigValidationRejectsCoDelTimeoutNotExceedingTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Ask.Discipline = DisciplineCoDelTimeout
	cfg.Ask.TargetMs = 10
	cfg.Ask.IntervalMs = 50
	cfg.Ask.TimeoutMs = 10 // must be strictly greater than target

	_, err := New(cfg, nil, nil)
	require.Error(t, err)
}

// Command sojourn-loadgen floods an in-process sojourn broker with
// concurrent ask/ask_r traffic to exercise scenario 6: symmetric matching
// keeps both queues near-empty under balanced load. Grounded on the
// teacher's worker-pool concurrency shape, generalized into
// internal/loadgen.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyw0ng95/sojourn/internal/loadgen"
	"github.com/cyw0ng95/sojourn/pkg/broker"
)

func main() {
	workers := flag.Int("workers", 8, "concurrent caller goroutines")
	rate := flag.Duration("rate", 2*time.Millisecond, "interval between submitted ask/ask_r pairs")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	discipline := flag.String("discipline", "naive", "AQM discipline: naive, timeout, codel, codel_timeout")
	capacity := flag.Int("capacity", 256, "per-side queue capacity")
	flag.Parse()

	spec := broker.QueueSpec{
		Discipline: broker.Discipline(*discipline),
		OutMode:    "fifo",
		DropMode:   "drop_oldest",
		Capacity:   *capacity,
		TimeoutMs:  200,
		TargetMs:   5,
		IntervalMs: 100,
	}
	cfg := broker.Config{
		Ask:                spec,
		AskR:               spec,
		TickIntervalMs:     10,
		ShutdownTimeoutMs:  2000,
		AsyncResultsBuffer: 4096,
	}

	log := broker.NewLogger(os.Stderr, broker.WarnLevel)
	b, err := broker.New(cfg, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid broker configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
	}
	defer cancel()

	go drainResults(ctx, b)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	gen := loadgen.NewGenerator(ctx, b, *workers, *workers*4)

	reportTicker := time.NewTicker(time.Second)
	defer reportTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reportTicker.C:
				snap := gen.Snapshot()
				fmt.Printf("issued=%d drained=%d ask_matched=%d ask_dropped=%d ask_r_matched=%d ask_r_dropped=%d\n",
					gen.Issued(), gen.Drained(), snap.AskMatched, snap.AskDropped, snap.AskRMatched, snap.AskRDropped)
			}
		}
	}()

	gen.Run(ctx, *rate)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	b.Shutdown(shutdownCtx)

	final := gen.Snapshot()
	fmt.Printf("final: ask_matched=%d ask_dropped=%d ask_r_matched=%d ask_r_dropped=%d\n",
		final.AskMatched, final.AskDropped, final.AskRMatched, final.AskRDropped)
}

// drainResults keeps Results() from backing up once AsyncAsk/AsyncAskR
// traffic is added; the current generator only uses synchronous Ask/AskR,
// but draining costs nothing and keeps this binary correct if that
// changes.
func drainResults(ctx context.Context, b *broker.Broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-b.Results():
			if !ok {
				return
			}
		}
	}
}

// Command sojournd exposes a sojourn broker over HTTP: an illustrative
// caller, not an embedder — pkg/broker has no HTTP dependency and is
// driven directly by Go callers in tests and in cmd/sojourn-loadgen.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyw0ng95/sojourn/pkg/broker"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configPath := flag.String("config", "", "path to a broker config JSON file (defaults built in if empty)")
	flag.Parse()

	log := broker.NewLogger(os.Stderr, broker.InfoLevel)

	cfg := broker.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Error("failed to open config file", map[string]any{"path": *configPath, "error": err.Error()})
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			log.Error("failed to decode config file", map[string]any{"path": *configPath, "error": err.Error()})
			os.Exit(1)
		}
		f.Close()
	}

	b, err := broker.New(cfg, nil, log)
	if err != nil {
		log.Error("invalid broker configuration", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: setupRouter(b),
	}

	go func() {
		log.Info("sojournd listening", map[string]any{"addr": *addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", map[string]any{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("sojournd shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMs)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced shutdown", map[string]any{"error": err.Error()})
	}
	if err := b.Shutdown(shutdownCtx); err != nil {
		log.Error("broker forced shutdown", map[string]any{"error": err.Error()})
	}

	log.Info("sojournd stopped", nil)
}

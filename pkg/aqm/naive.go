package aqm

import "github.com/cyw0ng95/sojourn/pkg/item"

// Naive is the baseline strategy: it never drops anything. All four hooks
// are no-ops.
type Naive struct{}

// NewNaive constructs the no-op AQM strategy.
func NewNaive() *Naive { return &Naive{} }

// OnTimeout implements Algorithm.
func (n *Naive) OnTimeout(nowMs int64, seq item.Sequence) []item.Dropped { return nil }

// OnEnqueue implements Algorithm.
func (n *Naive) OnEnqueue(nowMs int64, seq item.Sequence) []item.Dropped { return nil }

// OnDequeue implements Algorithm.
func (n *Naive) OnDequeue(nowMs int64, seq item.Sequence) []item.Dropped { return nil }

// OnJoin implements Algorithm.
func (n *Naive) OnJoin(nowMs int64, seq item.Sequence) {}

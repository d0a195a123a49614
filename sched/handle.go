package sched

import (
	"context"
	"sync"
)

// Outcome is the three-plus-one way result of an operation: executed,
// skipped by guard or detachment, failed during effect application, or
// cancelled before execution (superseded by a keyed sibling or dropped by
// ClearAll).
type Outcome uint8

const (
	OutcomeApplied Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result is what a completion handle delivers.
type Result struct {
	Outcome Outcome
	Err     error
}

// Applied reports whether the mutation was actually applied to the target.
func (r Result) Applied() bool { return r.Outcome == OutcomeApplied }

// Handle is the completion handle returned by every submission. It resolves
// exactly once; the scheduler never leaves a handle unresolved (cancelled
// operations resolve with OutcomeCancelled).
type Handle struct {
	once sync.Once
	ch   chan Result
}

func newHandle() *Handle {
	return &Handle{ch: make(chan Result, 1)}
}

func failedHandle(err error) *Handle {
	h := newHandle()
	h.resolve(Result{Outcome: OutcomeFailed, Err: err})
	return h
}

func (h *Handle) resolve(r Result) {
	h.once.Do(func() { h.ch <- r })
}

// Done returns a channel that receives the result once the operation has
// been executed, skipped, failed or cancelled.
func (h *Handle) Done() <-chan Result { return h.ch }

// Wait blocks until the operation resolves or the context is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-h.ch:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package resilience bounds work on a provider connection: a bulkhead caps
// in-flight calls and WithTimeout caps how long the caller waits.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is wrapped by WithTimeout when the deadline passes first.
var ErrTimeout = errors.New("operation timed out")

// ------------------------------------------------------------------
// Bulkhead
// ------------------------------------------------------------------

// Bulkhead limits concurrent executions. With capacity 1 callers run one at
// a time in the order they acquire the slot.
type Bulkhead struct {
	name string
	sem  chan struct{}
}

// NewBulkhead creates a bulkhead. maxConcurrent below 1 is treated as 1.
func NewBulkhead(name string, maxConcurrent int) *Bulkhead {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Bulkhead{
		name: name,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// Execute waits for a slot, then runs fn. A cancelled ctx while waiting
// returns the context error without running fn.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
		return fn()
	case <-ctx.Done():
		return fmt.Errorf("bulkhead %s: %w", b.name, ctx.Err())
	}
}

// ------------------------------------------------------------------
// Timeout wrapper
// ------------------------------------------------------------------

// WithTimeout runs fn with a deadline and returns as soon as either fn
// finishes or the deadline passes. A zero or negative timeout means none.
// fn keeps running after a timeout until it observes ctx.
func WithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return ctx.Err()
	}
}

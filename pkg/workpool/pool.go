// Package workpool bounds the number of request handlers that may hold a
// database connection at once, so slow database work cannot saturate the
// HTTP accept path.
package workpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded slot pool for I/O-heavy request work.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a pool with the given number of slots.
func New(size int64) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(size)}
}

// Do runs fn once a slot is free. It returns the context error if the caller
// goes away while waiting for a slot, otherwise whatever fn returns.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

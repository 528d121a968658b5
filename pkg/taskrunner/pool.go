package taskrunner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool runs submitted Work on a bounded number of concurrent goroutines,
// via an errgroup.Group with SetLimit. There is no separate queue: once
// the limit is reached, Submit blocks its caller until a slot frees up.
type Pool struct {
	base   context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewPool returns a Pool that runs at most concurrency units of Work at
// once. concurrency <= 0 is treated as 1.
func NewPool(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	base, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(base)
	eg.SetLimit(concurrency)
	return &Pool{base: egCtx, cancel: cancel, eg: eg}
}

func (p *Pool) Submit(work Work) Handle {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		h := newHandle(func() {})
		h.finish(ErrPoolClosed)
		return h
	}

	workCtx, workCancel := context.WithCancel(p.base)
	h := newHandle(workCancel)

	p.eg.Go(func() error {
		defer workCancel()
		err := work(workCtx)
		logFailure(workCtx, "pool.submit", err)
		h.finish(err)
		// errgroup.Group cancels its derived context on the first
		// non-nil return; background tasks are independent of one
		// another, so a single failure must not cancel its siblings.
		return nil
	})
	return h
}

// Close stops accepting new work and blocks until all in-flight work
// finishes or ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.eg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

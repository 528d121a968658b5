// Package taskrunner schedules work off the hot path: entity extraction
// after ingest, role-change and source-update handling during
// relocation, and any other
// background capability the archive's components need without blocking
// the caller. It has no dependency on pkg/thought so it can be reused by
// any component without contributing to an import cycle.
package taskrunner

import (
	"context"
	"errors"
	"log/slog"
)

// ErrPoolClosed is returned by Pool.Submit after Close has been called.
var ErrPoolClosed = errors.New("taskrunner: pool closed")

// Work is a unit of background work. It receives a context derived from
// the Runner's lifetime, not the caller's request context, since the
// caller is typically gone by the time Work runs.
type Work func(ctx context.Context) error

// Handle lets a caller observe or cancel a submitted unit of work.
type Handle interface {
	// Done is closed once the work has returned, successfully or not.
	Done() <-chan struct{}
	// Cancel requests early cancellation of the work's context.
	Cancel()
	// Err returns the work's error after Done is closed. It is safe to
	// call before Done closes, but returns nil until then.
	Err() error
}

// Runner submits background Work for asynchronous execution.
type Runner interface {
	Submit(work Work) Handle
	// Close stops accepting new work and waits for in-flight work to
	// finish or for ctx to expire, whichever comes first.
	Close(ctx context.Context) error
}

type handle struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func newHandle(cancel context.CancelFunc) *handle {
	return &handle{done: make(chan struct{}), cancel: cancel}
}

func (h *handle) Done() <-chan struct{} { return h.done }
func (h *handle) Cancel()               { h.cancel() }

// Err reads err only after done is closed; finish writes err before
// closing done, so the read is ordered after the write.
func (h *handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *handle) finish(err error) {
	h.err = err
	close(h.done)
}

// logFailure is the only place a background task's failure surfaces: the
// caller who triggered it is long gone, so there is nothing to return it
// to.
func logFailure(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	slog.ErrorContext(ctx, "background task failed", "op", op, "error", err)
}

package taskrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestInlineRunsSynchronously(t *testing.T) {
	r := NewInline()
	var ran bool
	h := r.Submit(func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !ran {
		t.Fatalf("expected work to have run before Submit returned")
	}
	select {
	case <-h.Done():
	default:
		t.Fatalf("expected handle to be done immediately")
	}
}

func TestInlinePropagatesError(t *testing.T) {
	r := NewInline()
	wantErr := errors.New("boom")
	h := r.Submit(func(ctx context.Context) error { return wantErr })
	if !errors.Is(h.Err(), wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, h.Err())
	}
}

func TestPoolRunsConcurrentlyUpToLimit(t *testing.T) {
	p := NewPool(2)
	var inFlight int32
	var maxInFlight int32
	n := 6
	handles := make([]Handle, n)

	for i := 0; i < n; i++ {
		handles[i] = p.Submit(func(ctx context.Context) error {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxInFlight)
				if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
	}

	for _, h := range handles {
		<-h.Done()
	}

	if atomic.LoadInt32(&maxInFlight) > 2 {
		t.Fatalf("expected at most 2 concurrent, saw %d", maxInFlight)
	}
}

func TestPoolSiblingFailureDoesNotCancelOthers(t *testing.T) {
	p := NewPool(4)
	h1 := p.Submit(func(ctx context.Context) error { return errors.New("fails") })
	<-h1.Done()

	var ran bool
	h2 := p.Submit(func(ctx context.Context) error {
		ran = true
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})
	<-h2.Done()

	if !ran {
		t.Fatalf("expected sibling work to run")
	}
	if h2.Err() != nil {
		t.Fatalf("expected sibling unaffected by first failure, got %v", h2.Err())
	}
}

func TestPoolCloseRejectsNewWork(t *testing.T) {
	p := NewPool(1)
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	h := p.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(h.Err(), ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", h.Err())
	}
}

func TestPoolRejectedHandleCancelDoesNotAffectInFlightWork(t *testing.T) {
	p := NewPool(4)

	started := make(chan struct{})
	release := make(chan struct{})
	inFlight := p.Submit(func(ctx context.Context) error {
		close(started)
		<-release
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})
	<-started

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	rejected := p.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(rejected.Err(), ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", rejected.Err())
	}

	// A caller that defers Cancel on every handle, including a rejected
	// one, must not cancel work submitted before the pool closed.
	rejected.Cancel()
	close(release)
	<-inFlight.Done()

	if inFlight.Err() != nil {
		t.Fatalf("expected in-flight work to complete unaffected, got %v", inFlight.Err())
	}
}

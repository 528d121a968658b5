package taskrunner

import "context"

// Inline runs submitted Work synchronously, in the calling goroutine. It
// exists for tests and for single-process deployments that would rather
// trade ingest latency for a simpler execution model.
type Inline struct{}

// NewInline returns a Runner that executes Work immediately on Submit.
func NewInline() *Inline { return &Inline{} }

func (r *Inline) Submit(work Work) Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)
	err := work(ctx)
	logFailure(ctx, "inline.submit", err)
	h.finish(err)
	return h
}

func (r *Inline) Close(ctx context.Context) error { return nil }

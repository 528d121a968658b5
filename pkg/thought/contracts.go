package thought

import (
	"context"
	"sync"
)

// Embedder turns text into the dense vector representation the Vector
// Index searches over. Implementations wrap a caller-supplied model;
// the only one in this module is the hash-based demo embedder in
// internal/demoembed, used by the CLI.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// EntityExtractor pulls typed entity labels (e.g. "Project:Apollo") out of
// text: at ingest, a thought's prompt and final response; at lookup, the
// query text. The Graph Index links the ingest-time labels. Extraction runs off the ingest hot path, scheduled through the
// Task Runner.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// BaseEmbedder adds a goroutine-fanout EmbedBatch on top of a single-text
// Embed implementation, for embedders whose client has no native batch
// call.
type BaseEmbedder struct {
	Embedder
}

// EmbedBatch embeds each text concurrently and returns results in the
// same order as texts. The first error encountered is returned; other
// in-flight embeds are left to finish but their results are discarded.
func (b BaseEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			vec, err := b.Embed(ctx, text)
			out[i] = vec
			errs[i] = err
		}(i, text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

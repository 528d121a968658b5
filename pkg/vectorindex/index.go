// Package vectorindex holds the dense embedding space the archive ranks
// candidates against. It keeps vectors in memory and scores every entry
// on each search, since the archive's working set is small enough that
// an approximate index would add complexity without a measurable gain.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// ScoredID pairs a thought id with its cosine similarity to a query
// vector, in descending score order.
type ScoredID struct {
	ID    string
	Score float64
}

// DefaultTopK is the candidate count Search returns when the caller asks
// for k <= 0.
const DefaultTopK = 20

// Index is a thread-safe, in-memory vector space keyed by thought id.
type Index struct {
	mu     sync.RWMutex
	closed bool
	vecs   map[string][]float32
}

// New returns an empty Index.
func New() *Index {
	return &Index{vecs: make(map[string][]float32)}
}

// Insert adds or replaces the vector stored under id.
func (idx *Index) Insert(id string, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return thought.WrapErr("Insert", thought.ErrClosed)
	}
	cp := make([]float32, len(vector))
	copy(cp, vector)
	idx.vecs[id] = cp
	return nil
}

// Remove deletes id's vector, if present. Removing an absent id is a
// no-op, since relocation deletes are idempotent.
func (idx *Index) Remove(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return thought.WrapErr("Remove", thought.ErrClosed)
	}
	delete(idx.vecs, id)
	return nil
}

// Search returns the k ids with the highest cosine similarity to query,
// in descending score order. k <= 0 defaults to DefaultTopK. Search
// checks ctx for cancellation before scanning, since a scan over a large
// working set can be expensive relative to a matchmaker deadline.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]ScoredID, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, thought.WrapErr("Search", thought.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, thought.WrapErr("Search", err)
	}

	scored := make([]ScoredID, 0, len(idx.vecs))
	for id, vec := range idx.vecs {
		scored = append(scored, ScoredID{ID: id, Score: cosineSimilarity(query, vec)})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Len reports the number of vectors currently indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vecs)
}

// Close marks the index closed; subsequent operations return
// thought.ErrClosed.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}

// cosineSimilarity returns the cosine similarity of a and b, or 0 when
// either vector is zero-length, mismatched in dimension, or the zero
// vector.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

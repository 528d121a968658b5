// Package demoembed provides a minimal built-in Embedder and
// EntityExtractor for the CLI composition root to drive end to end
// without a network call to a real embedding model. It is not a
// production embedding backend; a real deployment supplies its own
// Embedder and EntityExtractor to archive.Config.
package demoembed

import (
	"context"
	"strings"
	"unicode"
)

// Embedder projects text into a fixed-width vector via a rolling hash,
// giving deterministic, repeatable (if semantically meaningless)
// vectors for demonstration and for tests that need an Embedder without
// a real model.
type Embedder struct {
	dim int
}

// New returns an Embedder producing vectors of the given dimension.
func New(dim int) *Embedder {
	return &Embedder{dim: dim}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	var h uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
		vec[i%e.dim] += float32(h%1009) / 1009
	}
	return vec, nil
}

func (e *Embedder) Dim() int { return e.dim }

// Extractor pulls capitalized words out of text as a stand-in entity
// extractor, tagged with the generic "Term" type.
type Extractor struct{}

func (Extractor) Extract(ctx context.Context, text string) ([]string, error) {
	var entities []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		trimmed := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if trimmed == "" {
			continue
		}
		if !unicode.IsUpper(rune(trimmed[0])) {
			continue
		}
		label := "Term:" + trimmed
		if seen[label] {
			continue
		}
		seen[label] = true
		entities = append(entities, label)
	}
	return entities, nil
}

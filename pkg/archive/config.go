// Package archive is the composition root: it constructs and wires the
// nine components (A–I) into a single Engine, the way hindsight.New
// wires a store, graph and bank together from one Config. No package in
// this module other than cmd/coreason-archive imports archive; archive
// is the only package that imports everything else.
package archive

import (
	"github.com/CoReason-AI/coreason-archive/pkg/matchmaker"
	"github.com/CoReason-AI/coreason-archive/pkg/ranker"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// Config configures a new Engine. Loading Config from a file or the
// environment is out of scope (§1); callers construct it directly.
type Config struct {
	// Embedder and Extractor are required collaborators the archive does
	// not implement itself.
	Embedder  thought.Embedder
	Extractor thought.EntityExtractor

	// ScopeDefaults supplies default ttl_seconds per scope when a caller
	// does not specify one at ingest.
	ScopeDefaults ranker.ScopeDefaults

	// Matchmaker tunes the fused query pipeline's thresholds and weights.
	Matchmaker matchmaker.Config

	// IngestConcurrency bounds the background task pool used for entity
	// extraction and relocation handling. 0 (or less) runs that work
	// inline, synchronously on the calling goroutine.
	IngestConcurrency int

	// PersistSQLite selects the Thought Store's Snapshot/Load backend.
	// False (the default) persists to a single JSON file; true persists
	// to a SQLite database at the same path, queryable by external tools
	// between archive runs.
	PersistSQLite bool

	// OnCacheHit and OnRelocationSummary are the engine's event sinks;
	// both may be nil.
	OnCacheHit          func(thought.CacheHit)
	OnRelocationSummary func(thought.RelocationSummary)
}

// DefaultConfig returns a Config with the spec's default thresholds and
// scope ttl table. Embedder and Extractor must still be supplied by the
// caller.
func DefaultConfig(embedder thought.Embedder, extractor thought.EntityExtractor) Config {
	return Config{
		Embedder:          embedder,
		Extractor:         extractor,
		ScopeDefaults:     ranker.DefaultScopeDefaults(),
		Matchmaker:        matchmaker.DefaultConfig(),
		IngestConcurrency: 4,
	}
}

// Package matchmaker executes the fused query: vector retrieval, access
// and staleness filtering, graph-proximity boost, temporal decay, and
// threshold classification. It is the heart of the archive — every
// lookup passes through here exactly once.
package matchmaker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/CoReason-AI/coreason-archive/pkg/federation"
	"github.com/CoReason-AI/coreason-archive/pkg/graphindex"
	"github.com/CoReason-AI/coreason-archive/pkg/ranker"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
	"github.com/CoReason-AI/coreason-archive/pkg/thoughtstore"
	"github.com/CoReason-AI/coreason-archive/pkg/vectorindex"
)

// Config tunes the fused scoring pipeline.
type Config struct {
	// TopK candidates to pull from the Vector Index before filtering.
	TopK int
	// GraphBoost is β in boost = 1 + β·1[linked].
	GraphBoost float64
	// ExactThreshold is the minimum S for EXACT_HIT.
	ExactThreshold float64
	// SemanticThreshold is the minimum S for SEMANTIC_HINT.
	SemanticThreshold float64
	// MaxHops bounds the graph-linked check's traversal depth.
	MaxHops int
}

// DefaultConfig returns the spec's default thresholds: K=20, β=0.15,
// exact=0.99, semantic=0.85, 2 hops.
func DefaultConfig() Config {
	return Config{
		TopK:              20,
		GraphBoost:        0.15,
		ExactThreshold:    0.99,
		SemanticThreshold: 0.85,
		MaxHops:           2,
	}
}

// Matchmaker wires the archive's indices and ranker together to answer
// smart_lookup queries.
type Matchmaker struct {
	vectors   *vectorindex.Index
	graph     *graphindex.Index
	thoughts  *thoughtstore.Store
	rank      ranker.Ranker
	embedder  thought.Embedder
	extractor thought.EntityExtractor
	cfg       Config
	onHit     func(thought.CacheHit)
}

// New constructs a Matchmaker. extractor and onHit may be nil: without
// an extractor, ENTITY_HOP classification never fires (survivors with no
// query-entity overlap fall through to MISS); without onHit, cache hits
// are simply not reported anywhere.
func New(
	vectors *vectorindex.Index,
	graph *graphindex.Index,
	thoughts *thoughtstore.Store,
	rank ranker.Ranker,
	embedder thought.Embedder,
	extractor thought.EntityExtractor,
	cfg Config,
	onHit func(thought.CacheHit),
) *Matchmaker {
	return &Matchmaker{
		vectors:   vectors,
		graph:     graph,
		thoughts:  thoughts,
		rank:      rank,
		embedder:  embedder,
		extractor: extractor,
		cfg:       cfg,
		onHit:     onHit,
	}
}

type candidate struct {
	thought *thought.CachedThought
	score   float64
}

// SmartLookup runs the seven-step fused query pipeline described in the
// component design: embed, retrieve, filter, boost, decay, classify,
// emit. ctx's deadline is checked between steps 2/3, 3/4, and 4/5; on
// expiry the lookup returns a MissResult without emitting a hit event.
func (m *Matchmaker) SmartLookup(ctx context.Context, queryText string, userCtx thought.UserContext) (thought.Result, error) {
	// Step 1: embed.
	q, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return thought.MissResult{}, nil
	}
	q = thought.Normalize(q)

	// Step 2: candidate retrieval.
	scored, err := m.vectors.Search(ctx, q, m.cfg.TopK)
	if err != nil {
		return thought.MissResult{}, nil
	}

	if err := ctx.Err(); err != nil {
		return thought.MissResult{}, nil
	}

	// Step 3: access and staleness filter.
	filter := federation.Compile(userCtx)
	var survivors []candidate
	for _, s := range scored {
		t, err := m.thoughts.Get(s.ID)
		if err != nil {
			continue // deleted between retrieval and lookup; not an inconsistency, just a race
		}
		if t.IsStale || !filter(t) {
			continue
		}
		survivors = append(survivors, candidate{thought: t, score: s.Score})
	}

	if err := ctx.Err(); err != nil {
		return thought.MissResult{}, nil
	}

	// Step 4: graph boost.
	activeProject := fmt.Sprintf("Project:%s", userCtx.ActiveProjectID)
	for i := range survivors {
		boost := 1.0
		if userCtx.ActiveProjectID != "" {
			linked, err := m.graph.Linked(ctx, thought.ThoughtNodeLabel(survivors[i].thought.ID), activeProject, m.cfg.MaxHops)
			if err == nil && linked {
				boost = 1 + m.cfg.GraphBoost
			}
		}
		survivors[i].score *= boost
	}

	if err := ctx.Err(); err != nil {
		return thought.MissResult{}, nil
	}

	// Step 5: decay.
	now := time.Now()
	for i := range survivors {
		survivors[i].score *= m.rank.Decay(now, survivors[i].thought)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		ti, tj := survivors[i].thought, survivors[j].thought
		if !ti.CreatedAt.Equal(tj.CreatedAt) {
			return ti.CreatedAt.After(tj.CreatedAt)
		}
		return ti.ID < tj.ID
	})

	// Step 6: classify.
	result := m.classify(ctx, queryText, survivors)

	// Step 7: emit.
	if hit, ok := asCacheHit(result); ok && m.onHit != nil {
		m.onHit(hit)
	}

	return result, nil
}

func (m *Matchmaker) classify(ctx context.Context, queryText string, survivors []candidate) thought.Result {
	if len(survivors) == 0 {
		return thought.MissResult{}
	}

	best := survivors[0]
	switch {
	case best.score >= m.cfg.ExactThreshold:
		return thought.ExactHitResult{
			ThoughtID:      best.thought.ID,
			Score:          best.score,
			PromptText:     best.thought.PromptText,
			ReasoningTrace: best.thought.ReasoningTrace,
			FinalResponse:  best.thought.FinalResponse,
		}
	case best.score >= m.cfg.SemanticThreshold:
		return thought.SemanticHintResult{
			ThoughtID:      best.thought.ID,
			Score:          best.score,
			ReasoningTrace: best.thought.ReasoningTrace,
		}
	}

	if m.extractor == nil || best.score <= 0 {
		return thought.MissResult{}
	}
	queryEntities, err := m.extractor.Extract(ctx, queryText)
	if err != nil || len(queryEntities) == 0 {
		return thought.MissResult{}
	}

	if sharesEntity(best.thought.Entities, queryEntities) {
		return thought.EntityHopResult{
			ThoughtID:      best.thought.ID,
			Score:          best.score,
			ReasoningTrace: best.thought.ReasoningTrace,
		}
	}
	return thought.MissResult{}
}

func sharesEntity(have, want []string) bool {
	set := make(map[string]bool, len(want))
	for _, e := range want {
		set[e] = true
	}
	for _, e := range have {
		if set[e] {
			return true
		}
	}
	return false
}

func asCacheHit(r thought.Result) (thought.CacheHit, bool) {
	switch v := r.(type) {
	case thought.ExactHitResult:
		return thought.CacheHit{ThoughtID: v.ThoughtID, Strategy: thought.ExactHit, EstimatedSavedUnits: estimateSavedUnits(v.PromptText, v.ReasoningTrace, v.FinalResponse)}, true
	case thought.SemanticHintResult:
		return thought.CacheHit{ThoughtID: v.ThoughtID, Strategy: thought.SemanticHint, EstimatedSavedUnits: estimateSavedUnits("", v.ReasoningTrace, "")}, true
	case thought.EntityHopResult:
		return thought.CacheHit{ThoughtID: v.ThoughtID, Strategy: thought.EntityHop, EstimatedSavedUnits: estimateSavedUnits("", v.ReasoningTrace, "")}, true
	default:
		return thought.CacheHit{}, false
	}
}

// estimateSavedUnits is a rough proxy for the compute a cache hit spares
// the caller: the length of the text that did not need to be
// regenerated. The cost accountant that consumes CacheHit is free to
// apply its own, more precise costing model.
func estimateSavedUnits(texts ...string) float64 {
	var total int
	for _, s := range texts {
		total += len(s)
	}
	return float64(total)
}

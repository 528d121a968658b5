// Package ingest implements add_thought: the five-step pipeline that
// validates, embeds, persists, and schedules entity extraction for a
// new cached thought.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CoReason-AI/coreason-archive/pkg/federation"
	"github.com/CoReason-AI/coreason-archive/pkg/graphindex"
	"github.com/CoReason-AI/coreason-archive/pkg/taskrunner"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
	"github.com/CoReason-AI/coreason-archive/pkg/thoughtstore"
	"github.com/CoReason-AI/coreason-archive/pkg/vectorindex"
)

// maxEmbedAttempts is the retry ceiling for step 3's embedding call.
const maxEmbedAttempts = 3

// Request carries the caller-supplied fields for add_thought; fields
// the pipeline itself synthesizes (id, created_at, entities) are not
// part of the request.
//
// The spec's add_thought signature names only "prompt" and "response",
// but CachedThought carries prompt_text, reasoning_trace and
// final_response as three distinct fields (§3, §4.F step 6). A caching
// layer sitting in front of a reasoning agent has a reasoning trace to
// offer at write time, so Request accepts it explicitly rather than
// folding it into Response.
type Request struct {
	PromptText     string
	ReasoningTrace string
	Response       string
	Scope          thought.Scope
	ScopeID        string
	TTLSeconds     int64 // 0 means "use the scope default"
	SourceURNs     []string
	AccessRoles    []string
}

// Pipeline wires the indices, broker, embedder, extractor and task
// runner together to run add_thought.
type Pipeline struct {
	thoughts  *thoughtstore.Store
	vectors   *vectorindex.Index
	graph     *graphindex.Index
	embedder  thought.Embedder
	extractor thought.EntityExtractor
	runner    taskrunner.Runner
	ttlFor    func(thought.Scope) int64
}

// New constructs a Pipeline. ttlFor supplies the default ttl_seconds for
// a scope when the caller does not specify one; pass nil to require an
// explicit ttl on every request.
func New(
	thoughts *thoughtstore.Store,
	vectors *vectorindex.Index,
	graph *graphindex.Index,
	embedder thought.Embedder,
	extractor thought.EntityExtractor,
	runner taskrunner.Runner,
	ttlFor func(thought.Scope) int64,
) *Pipeline {
	return &Pipeline{
		thoughts:  thoughts,
		vectors:   vectors,
		graph:     graph,
		embedder:  embedder,
		extractor: extractor,
		runner:    runner,
		ttlFor:    ttlFor,
	}
}

// AddThought runs the five-step ingest pipeline and returns the
// persisted thought's id.
func (p *Pipeline) AddThought(ctx context.Context, req Request, userCtx thought.UserContext) (string, error) {
	// Step 1: validate and authorize.
	if !req.Scope.Valid() {
		return "", thought.WrapErr("AddThought", thought.ErrInvalidThought)
	}
	scopeID := req.ScopeID
	if req.Scope == thought.ScopeGlobal && scopeID == "" {
		scopeID = thought.GlobalScopeID
	}
	if err := federation.AuthorizeWrite(userCtx, req.Scope, scopeID); err != nil {
		return "", thought.WrapErr("AddThought", err)
	}

	ttl := req.TTLSeconds
	if ttl == 0 && p.ttlFor != nil {
		ttl = p.ttlFor(req.Scope)
	}
	if ttl < 1 {
		return "", thought.WrapErr("AddThought", thought.ErrInvalidThought)
	}

	// Step 2: synthesize.
	t := &thought.CachedThought{
		ID:             uuid.NewString(),
		Scope:          req.Scope,
		ScopeID:        scopeID,
		OwnerID:        userCtx.UserID,
		PromptText:     req.PromptText,
		ReasoningTrace: req.ReasoningTrace,
		FinalResponse:  req.Response,
		SourceURNs:     req.SourceURNs,
		AccessRoles:    req.AccessRoles,
		IsStale:        false,
		CreatedAt:      time.Now(),
		TTLSeconds:     ttl,
	}

	// Step 3: embed, with bounded retry.
	vector, err := p.embedWithRetry(ctx, req.PromptText+"\n"+req.Response)
	if err != nil {
		return "", thought.WrapErr("AddThought", thought.ErrEmbeddingFailed)
	}
	t.Vector = thought.Normalize(vector)

	if err := t.Validate(); err != nil {
		return "", thought.WrapErr("AddThought", err)
	}
	if p.embedder != nil {
		if err := t.ValidateDimension(p.embedder.Dim()); err != nil {
			return "", thought.WrapErr("AddThought", err)
		}
	}

	// Step 4: atomic multi-index write, lock order Thought Store → Vector
	// Index → Graph Index.
	if err := p.thoughts.Put(t); err != nil {
		return "", thought.WrapErr("AddThought", thought.ErrIndexInconsistency)
	}
	if err := p.vectors.Insert(t.ID, t.Vector); err != nil {
		return "", thought.WrapErr("AddThought", thought.ErrIndexInconsistency)
	}
	thoughtLabel := thought.ThoughtNodeLabel(t.ID)
	p.graph.AddNode(thoughtLabel)
	p.graph.AddEdge(thoughtLabel, thought.UserNodeLabel(t.OwnerID), graphindex.RelCreated)
	p.graph.AddEdge(thoughtLabel, thought.ScopeNodeLabel(t.Scope, t.ScopeID), graphindex.RelBelongsTo)

	// Step 5: schedule entity extraction off the hot path.
	if p.extractor != nil && p.runner != nil {
		id := t.ID
		text := req.PromptText + "\n" + req.Response
		p.runner.Submit(func(ctx context.Context) error {
			return p.completeExtraction(ctx, id, text)
		})
	}

	return t.ID, nil
}

func (p *Pipeline) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < maxEmbedAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		vector, err := p.embedder.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embed after %d attempts: %w", maxEmbedAttempts, lastErr)
}

// completeExtraction runs the background entity-extraction step: it
// looks up entities for the stored text and links them into the graph.
// It is idempotent and treats a since-deleted thought as a no-op, per
// §4.G step 5.
func (p *Pipeline) completeExtraction(ctx context.Context, thoughtID, text string) error {
	entities, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return thought.WrapErr("completeExtraction", thought.ErrExtractionFailed)
	}

	t, err := p.thoughts.Get(thoughtID)
	if err != nil {
		return nil // deleted since scheduling; idempotent no-op
	}

	thoughtLabel := thought.ThoughtNodeLabel(thoughtID)
	for _, e := range entities {
		p.graph.AddNode(e)
		p.graph.AddEdge(thoughtLabel, e, graphindex.RelMentionedIn)
	}

	t.Entities = entities
	if err := p.thoughts.Put(t); err != nil {
		return nil // deleted concurrently; idempotent no-op
	}
	return nil
}

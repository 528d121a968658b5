package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/CoReason-AI/coreason-archive/pkg/graphindex"
	"github.com/CoReason-AI/coreason-archive/pkg/taskrunner"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
	"github.com/CoReason-AI/coreason-archive/pkg/thoughtstore"
	"github.com/CoReason-AI/coreason-archive/pkg/vectorindex"
)

type stubEmbedder struct {
	vec      []float32
	err      error
	failures int // number of calls to fail before succeeding
	calls    int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("transient")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) Dim() int { return len(s.vec) }

type stubExtractor struct {
	entities []string
	err      error
}

func (s stubExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	return s.entities, s.err
}

func newTestPipeline(embedder thought.Embedder, extractor thought.EntityExtractor, runner taskrunner.Runner) (*Pipeline, *thoughtstore.Store, *vectorindex.Index, *graphindex.Index) {
	ts := thoughtstore.New()
	vi := vectorindex.New()
	gi := graphindex.New()
	p := New(ts, vi, gi, embedder, extractor, runner, func(s thought.Scope) int64 { return 3600 })
	return p, ts, vi, gi
}

func TestAddThoughtHappyPath(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	p, ts, vi, gi := newTestPipeline(embedder, nil, nil)

	id, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeUser, ScopeID: "alice",
	}, thought.UserContext{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ts.Get(id); err != nil {
		t.Fatalf("expected thought in store: %v", err)
	}
	if vi.Len() != 1 {
		t.Fatalf("expected 1 vector, got %d", vi.Len())
	}
	if !gi.HasNode(thought.ThoughtNodeLabel(id)) {
		t.Fatalf("expected thought node in graph")
	}
}

func TestAddThoughtRejectsUnauthorizedScope(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	p, _, _, _ := newTestPipeline(embedder, nil, nil)

	_, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeUser, ScopeID: "bob",
	}, thought.UserContext{UserID: "alice"})
	if !errors.Is(err, thought.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAddThoughtRetriesEmbeddingOnTransientFailure(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}, failures: 2}
	p, _, _, _ := newTestPipeline(embedder, nil, nil)

	_, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeGlobal,
	}, thought.UserContext{UserID: "alice", Roles: []string{"archive:write_global"}})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 embed attempts, got %d", embedder.calls)
	}
}

func TestAddThoughtFailsAfterExhaustingRetries(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}, failures: 3}
	p, _, _, _ := newTestPipeline(embedder, nil, nil)

	_, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeGlobal,
	}, thought.UserContext{UserID: "alice", Roles: []string{"archive:write_global"}})
	if !errors.Is(err, thought.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
	if embedder.calls != maxEmbedAttempts {
		t.Fatalf("expected %d embed attempts, got %d", maxEmbedAttempts, embedder.calls)
	}
}

func TestAddThoughtSchedulesExtractionAndLinksEntities(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	extractor := stubExtractor{entities: []string{"Project:Apollo"}}
	runner := taskrunner.NewInline()
	p, ts, _, gi := newTestPipeline(embedder, extractor, runner)

	id, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeUser, ScopeID: "alice",
	}, thought.UserContext{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	stored, err := ts.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Entities) != 1 || stored.Entities[0] != "Project:Apollo" {
		t.Fatalf("expected entities linked, got %v", stored.Entities)
	}
	if !gi.HasNode("Project:Apollo") {
		t.Fatalf("expected entity node in graph")
	}
}

func TestAddThoughtExtractionCompletionIsNoOpAfterDelete(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	extractor := stubExtractor{entities: []string{"Project:Apollo"}}
	ts := thoughtstore.New()
	vi := vectorindex.New()
	gi := graphindex.New()
	p := New(ts, vi, gi, embedder, extractor, nil, func(s thought.Scope) int64 { return 3600 })

	id, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.ScopeUser, ScopeID: "alice",
	}, thought.UserContext{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	if err := ts.Delete(id); err != nil {
		t.Fatal(err)
	}

	if err := p.completeExtraction(context.Background(), id, "hello\nworld"); err != nil {
		t.Fatalf("expected idempotent no-op, got %v", err)
	}
}

func TestAddThoughtRejectsInvalidScope(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{1, 0}}
	p, _, _, _ := newTestPipeline(embedder, nil, nil)

	_, err := p.AddThought(context.Background(), Request{
		PromptText: "hello", Response: "world", Scope: thought.Scope("BOGUS"),
	}, thought.UserContext{UserID: "alice"})
	if !errors.Is(err, thought.ErrInvalidThought) {
		t.Fatalf("expected ErrInvalidThought, got %v", err)
	}
}

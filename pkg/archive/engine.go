package archive

import (
	"context"

	"github.com/CoReason-AI/coreason-archive/pkg/graphindex"
	"github.com/CoReason-AI/coreason-archive/pkg/ingest"
	"github.com/CoReason-AI/coreason-archive/pkg/matchmaker"
	"github.com/CoReason-AI/coreason-archive/pkg/ranker"
	"github.com/CoReason-AI/coreason-archive/pkg/relocation"
	"github.com/CoReason-AI/coreason-archive/pkg/taskrunner"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
	"github.com/CoReason-AI/coreason-archive/pkg/thoughtstore"
	"github.com/CoReason-AI/coreason-archive/pkg/vectorindex"
)

// Engine owns the archive's three shared indices and the components
// built on top of them. It is constructed once at startup; there is no
// ambient singleton (§9).
type Engine struct {
	Thoughts *thoughtstore.Store
	Vectors  *vectorindex.Index
	Graph    *graphindex.Index

	Matchmaker *matchmaker.Matchmaker
	Ingest     *ingest.Pipeline
	Relocation *relocation.Manager

	runner  taskrunner.Runner
	persist thoughtstore.SnapshotStore
}

// New constructs an Engine from cfg, wiring the three indices into the
// Matchmaker, Ingestion Pipeline and Relocation Manager.
func New(cfg Config) *Engine {
	thoughts := thoughtstore.New()
	vectors := vectorindex.New()
	graph := graphindex.New()

	runner := taskrunner.Runner(taskrunner.NewInline())
	if cfg.IngestConcurrency > 0 {
		runner = taskrunner.NewPool(cfg.IngestConcurrency)
	}

	scopeDefaults := cfg.ScopeDefaults
	if scopeDefaults == nil {
		scopeDefaults = ranker.DefaultScopeDefaults()
	}

	mmCfg := cfg.Matchmaker
	if mmCfg == (matchmaker.Config{}) {
		mmCfg = matchmaker.DefaultConfig()
	}

	mm := matchmaker.New(vectors, graph, thoughts, ranker.HalfLifeDecay, cfg.Embedder, cfg.Extractor, mmCfg, cfg.OnCacheHit)

	ingestPipeline := ingest.New(thoughts, vectors, graph, cfg.Embedder, cfg.Extractor, runner, scopeDefaults.TTLFor)

	relocationManager := relocation.New(thoughts, vectors, graph, nil, runner, cfg.OnRelocationSummary)

	var persist thoughtstore.SnapshotStore = thoughtstore.JSONBackend(thoughts)
	if cfg.PersistSQLite {
		persist = thoughtstore.SQLiteBackend(thoughts)
	}

	return &Engine{
		Thoughts:   thoughts,
		Vectors:    vectors,
		Graph:      graph,
		Matchmaker: mm,
		Ingest:     ingestPipeline,
		Relocation: relocationManager,
		runner:     runner,
		persist:    persist,
	}
}

// SmartLookup answers a query through the fused Matchmaker pipeline.
func (e *Engine) SmartLookup(ctx context.Context, queryText string, userCtx thought.UserContext) (thought.Result, error) {
	return e.Matchmaker.SmartLookup(ctx, queryText, userCtx)
}

// AddThought runs the ingestion pipeline for a new thought.
func (e *Engine) AddThought(ctx context.Context, req ingest.Request, userCtx thought.UserContext) (string, error) {
	return e.Ingest.AddThought(ctx, req, userCtx)
}

// HandleRoleUpdate dispatches a role-change event to the Relocation
// Manager.
func (e *Engine) HandleRoleUpdate(update thought.RoleUpdate) taskrunner.Handle {
	return e.Relocation.HandleRoleUpdate(update)
}

// HandleSourceUpdated dispatches a source-update event to the Relocation
// Manager.
func (e *Engine) HandleSourceUpdated(event thought.SourceUpdated) taskrunner.Handle {
	return e.Relocation.HandleSourceUpdated(event)
}

// Snapshot persists the Thought Store to path. The Vector and Graph
// Indices are derived state, rebuildable from the thoughts themselves
// (§6 "Persisted state"); a full reference build would also serialize
// them, but reconstructing both from the snapshot's thoughts keeps the
// persisted format to a single file.
func (e *Engine) Snapshot(path string) error {
	return e.persist.Snapshot(path)
}

// Load restores the Thought Store from path and rebuilds the Vector and
// Graph Indices from the loaded thoughts.
func (e *Engine) Load(path string) error {
	if err := e.persist.Load(path); err != nil {
		return err
	}
	all, err := e.Thoughts.Scan(context.Background(), func(*thought.CachedThought) bool { return true })
	if err != nil {
		return err
	}
	for _, t := range all {
		if err := e.Vectors.Insert(t.ID, t.Vector); err != nil {
			return err
		}
		label := thought.ThoughtNodeLabel(t.ID)
		e.Graph.AddNode(label)
		e.Graph.AddEdge(label, thought.UserNodeLabel(t.OwnerID), graphindex.RelCreated)
		e.Graph.AddEdge(label, thought.ScopeNodeLabel(t.Scope, t.ScopeID), graphindex.RelBelongsTo)
		for _, entity := range t.Entities {
			e.Graph.AddNode(entity)
			e.Graph.AddEdge(label, entity, graphindex.RelMentionedIn)
		}
	}
	return nil
}

// Close stops accepting new background work and waits for in-flight
// work to finish or ctx to expire.
func (e *Engine) Close(ctx context.Context) error {
	return e.runner.Close(ctx)
}

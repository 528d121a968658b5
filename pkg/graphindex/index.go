// Package graphindex tracks the structural relationships between cached
// thoughts, users, and scopes: what created what, what belongs to what,
// and what mentions what. The Matchmaker consults it to boost candidates
// that sit near the caller's active project.
package graphindex

import (
	"context"
	"sync"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// Relation is the typed label on a directed edge between two node
// labels (see thought.ThoughtNodeLabel and friends for label shapes).
type Relation string

const (
	RelCreated    Relation = "CREATED"
	RelBelongsTo  Relation = "BELONGS_TO"
	RelRelatedTo  Relation = "RELATED_TO"
	RelMentionedIn Relation = "MENTIONED_IN"
)

// DefaultMaxHops bounds Linked's traversal depth when the caller does not
// specify one.
const DefaultMaxHops = 2

type edge struct {
	to   string
	kind Relation
}

// Index is a thread-safe, in-memory directed multigraph keyed by node
// label. Edges are undirected for traversal purposes (Linked and
// Neighbors walk both directions) but retain their original direction
// and type for callers that need it.
type Index struct {
	mu    sync.RWMutex
	nodes map[string]bool
	out   map[string][]edge
	in    map[string][]edge
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		nodes: make(map[string]bool),
		out:   make(map[string][]edge),
		in:    make(map[string][]edge),
	}
}

// AddNode registers label as a node. Adding an already-present label is
// a no-op, since ingest upserts nodes idempotently on every write.
func (idx *Index) AddNode(label string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nodes[label] = true
}

// AddEdge links from to to with the given relation, creating either
// endpoint as a node if it is not already registered. Adding the same
// (from, to, kind) triple twice leaves a single edge, matching the
// teacher's upsert-on-conflict behavior.
func (idx *Index) AddEdge(from, to string, kind Relation) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.nodes[from] = true
	idx.nodes[to] = true

	for _, e := range idx.out[from] {
		if e.to == to && e.kind == kind {
			return
		}
	}
	idx.out[from] = append(idx.out[from], edge{to: to, kind: kind})
	idx.in[to] = append(idx.in[to], edge{to: from, kind: kind})
}

// RemoveNode deletes label and every edge touching it.
func (idx *Index) RemoveNode(label string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeNodeLocked(label)
}

func (idx *Index) removeNodeLocked(label string) {
	delete(idx.nodes, label)

	for _, e := range idx.out[label] {
		idx.in[e.to] = removeEdgeTo(idx.in[e.to], label)
	}
	for _, e := range idx.in[label] {
		idx.out[e.to] = removeEdgeTo(idx.out[e.to], label)
	}
	delete(idx.out, label)
	delete(idx.in, label)
}

func removeEdgeTo(edges []edge, target string) []edge {
	out := edges[:0]
	for _, e := range edges {
		if e.to != target {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the set of node labels reachable from start within
// maxHops, traversing edges in both directions. maxHops <= 0 defaults to
// DefaultMaxHops. start itself is never included.
func (idx *Index) Neighbors(ctx context.Context, start string, maxHops int) ([]string, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, thought.WrapErr("Neighbors", err)
	}

	type queued struct {
		label string
		depth int
	}

	visited := map[string]bool{start: true}
	queue := []queued{{start, 0}}
	var result []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= maxHops {
			continue
		}

		for _, e := range idx.bothDirectionsLocked(cur.label) {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			result = append(result, e.to)
			queue = append(queue, queued{e.to, cur.depth + 1})
		}
	}

	return result, nil
}

// Linked reports whether b is reachable from a within maxHops edges.
// maxHops <= 0 defaults to DefaultMaxHops.
func (idx *Index) Linked(ctx context.Context, a, b string, maxHops int) (bool, error) {
	if a == b {
		return true, nil
	}
	neighbors, err := idx.Neighbors(ctx, a, maxHops)
	if err != nil {
		return false, err
	}
	for _, n := range neighbors {
		if n == b {
			return true, nil
		}
	}
	return false, nil
}

// bothDirectionsLocked returns every edge touching label, regardless of
// original direction. Callers must hold idx.mu.
func (idx *Index) bothDirectionsLocked(label string) []edge {
	edges := make([]edge, 0, len(idx.out[label])+len(idx.in[label]))
	edges = append(edges, idx.out[label]...)
	edges = append(edges, idx.in[label]...)
	return edges
}

// HasNode reports whether label is registered.
func (idx *Index) HasNode(label string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes[label]
}

// NodeCount reports the number of registered nodes.
func (idx *Index) NodeCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

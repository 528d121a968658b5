// Package relocation reacts to identity and source-registry events: it
// sanitizes or deletes a user's thoughts when their access changes, and
// flags thoughts stale when a source document they cite is updated.
package relocation

import (
	"context"

	"github.com/CoReason-AI/coreason-archive/pkg/graphindex"
	"github.com/CoReason-AI/coreason-archive/pkg/taskrunner"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
	"github.com/CoReason-AI/coreason-archive/pkg/thoughtstore"
	"github.com/CoReason-AI/coreason-archive/pkg/vectorindex"
)

// Manager dispatches role-change and source-update handling through the
// Task Runner, off the path of whatever triggered the event.
type Manager struct {
	thoughts  *thoughtstore.Store
	vectors   *vectorindex.Index
	graph     *graphindex.Index
	sanitizer Sanitizer
	runner    taskrunner.Runner
	onSummary func(thought.RelocationSummary)
}

// New constructs a Manager. sanitizer defaults to DefaultSanitizer if
// nil. onSummary may be nil if the caller has nowhere to report
// relocation_summary events.
func New(
	thoughts *thoughtstore.Store,
	vectors *vectorindex.Index,
	graph *graphindex.Index,
	sanitizer Sanitizer,
	runner taskrunner.Runner,
	onSummary func(thought.RelocationSummary),
) *Manager {
	if sanitizer == nil {
		sanitizer = DefaultSanitizer
	}
	return &Manager{
		thoughts:  thoughts,
		vectors:   vectors,
		graph:     graph,
		sanitizer: sanitizer,
		runner:    runner,
		onSummary: onSummary,
	}
}

// HandleRoleUpdate schedules processing of a RoleUpdate on the Task
// Runner. Dept/project membership changes need no data mutation: access
// is evaluated from current context on every read, so losing membership
// simply makes future reads fail the Federation Broker's filter. Only
// the user's own USER-scoped thoughts are sanitization-checked.
func (m *Manager) HandleRoleUpdate(update thought.RoleUpdate) taskrunner.Handle {
	runner := m.runner
	if runner == nil {
		runner = taskrunner.NewInline()
	}
	return runner.Submit(func(ctx context.Context) error {
		return m.processRoleUpdate(ctx, update)
	})
}

func (m *Manager) processRoleUpdate(ctx context.Context, update thought.RoleUpdate) error {
	candidates, err := m.thoughts.Scan(ctx, func(t *thought.CachedThought) bool {
		return t.Scope == thought.ScopeUser && t.OwnerID == update.UserID
	})
	if err != nil {
		return thought.WrapErr("processRoleUpdate", err)
	}

	summary := thought.RelocationSummary{UserID: update.UserID}
	for _, t := range candidates {
		if m.sanitizer.ContainsSensitive(t) {
			if err := m.deleteThought(t.ID); err != nil {
				continue
			}
			summary.Deleted++
			continue
		}
		summary.Retained++
	}

	if m.onSummary != nil {
		m.onSummary(summary)
	}
	return nil
}

// deleteThought removes t from every index, in the archive's standard
// lock order: Thought Store → Vector Index → Graph Index.
func (m *Manager) deleteThought(id string) error {
	if err := m.thoughts.Delete(id); err != nil {
		return thought.WrapErr("deleteThought", err)
	}
	if err := m.vectors.Remove(id); err != nil {
		return thought.WrapErr("deleteThought", err)
	}
	m.graph.RemoveNode(thought.ThoughtNodeLabel(id))
	return nil
}

// HandleSourceUpdated schedules processing of a SourceUpdated event on
// the Task Runner: every thought citing the source is flagged stale.
func (m *Manager) HandleSourceUpdated(event thought.SourceUpdated) taskrunner.Handle {
	runner := m.runner
	if runner == nil {
		runner = taskrunner.NewInline()
	}
	return runner.Submit(func(ctx context.Context) error {
		return m.processSourceUpdated(ctx, event)
	})
}

func (m *Manager) processSourceUpdated(ctx context.Context, event thought.SourceUpdated) error {
	affected, err := m.thoughts.Scan(ctx, func(t *thought.CachedThought) bool {
		return containsURN(t.SourceURNs, event.SourceURN)
	})
	if err != nil {
		return thought.WrapErr("processSourceUpdated", err)
	}

	for _, t := range affected {
		t.IsStale = true
		if err := m.thoughts.Put(t); err != nil {
			continue // deleted concurrently; idempotent no-op
		}
	}
	return nil
}

func containsURN(urns []string, target string) bool {
	for _, u := range urns {
		if u == target {
			return true
		}
	}
	return false
}

// Package thoughtstore holds the canonical copy of every cached thought.
// The Vector Index and Graph Index are derived, rebuildable projections;
// this package is the source of truth and the only one a Snapshot needs
// to reconstruct the others from.
package thoughtstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// Store is a thread-safe, in-memory map of thought id to CachedThought,
// guarded by a single RWMutex. The archive's lock order places Store
// first: any operation touching more than one index acquires this lock
// before the Vector Index's or Graph Index's.
type Store struct {
	mu     sync.RWMutex
	closed bool
	byID   map[string]*thought.CachedThought
}

// New returns an empty Store.
func New() *Store {
	return &Store{byID: make(map[string]*thought.CachedThought)}
}

// Put stores t under its own ID, replacing any existing entry.
func (s *Store) Put(t *thought.CachedThought) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return thought.WrapErr("Put", thought.ErrClosed)
	}
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

// Get returns the thought stored under id, or thought.ErrNotFound.
func (s *Store) Get(id string) (*thought.CachedThought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, thought.WrapErr("Get", thought.ErrClosed)
	}
	t, ok := s.byID[id]
	if !ok {
		return nil, thought.WrapErr("Get", thought.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// Delete removes id. Deleting an absent id is a no-op: relocation and
// extraction-completion callbacks both rely on delete being idempotent.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return thought.WrapErr("Delete", thought.ErrClosed)
	}
	delete(s.byID, id)
	return nil
}

// Predicate reports whether a thought should be included in a Scan.
type Predicate func(*thought.CachedThought) bool

// Scan returns every thought for which pred returns true. It snapshots
// the table under a read lock so the predicate runs without holding the
// lock for longer than the copy takes.
func (s *Store) Scan(ctx context.Context, pred Predicate) ([]*thought.CachedThought, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, thought.WrapErr("Scan", thought.ErrClosed)
	}
	snapshot := make([]*thought.CachedThought, 0, len(s.byID))
	for _, t := range s.byID {
		cp := *t
		snapshot = append(snapshot, &cp)
	}
	s.mu.RUnlock()

	var out []*thought.CachedThought
	for _, t := range snapshot {
		if err := ctx.Err(); err != nil {
			return nil, thought.WrapErr("Scan", err)
		}
		if pred(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Len reports the number of thoughts currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Close marks the store closed; subsequent operations return
// thought.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Snapshot writes every thought to path as JSON, via a temp-file-then-
// rename so a crash mid-write never leaves a truncated snapshot behind.
func (s *Store) Snapshot(path string) error {
	s.mu.RLock()
	all := make([]*thought.CachedThought, 0, len(s.byID))
	for _, t := range s.byID {
		cp := *t
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(all)
	if err != nil {
		return thought.WrapErr("Snapshot", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return thought.WrapErr("Snapshot", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return thought.WrapErr("Snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return thought.WrapErr("Snapshot", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return thought.WrapErr("Snapshot", err)
	}
	return nil
}

// Load replaces the store's contents with the thoughts serialized at
// path by Snapshot.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return thought.WrapErr("Load", err)
	}

	var all []*thought.CachedThought
	if err := json.Unmarshal(data, &all); err != nil {
		return thought.WrapErr("Load", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return thought.WrapErr("Load", thought.ErrClosed)
	}
	byID := make(map[string]*thought.CachedThought, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	s.byID = byID
	return nil
}

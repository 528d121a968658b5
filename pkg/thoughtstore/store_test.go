package thoughtstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

func sampleThought(id string) *thought.CachedThought {
	return &thought.CachedThought{
		ID:         id,
		Vector:     []float32{0.1, 0.2},
		Scope:      thought.ScopeProject,
		ScopeID:    "proj-1",
		OwnerID:    "user-1",
		TTLSeconds: 3600,
		CreatedAt:  time.Now(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	want := sampleThought("t1")
	if err := s.Put(want); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || got.OwnerID != want.OwnerID {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	if _, err := s.Get("missing"); !errors.Is(err, thought.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutIsolatesCallerMutation(t *testing.T) {
	s := New()
	th := sampleThought("t1")
	if err := s.Put(th); err != nil {
		t.Fatal(err)
	}
	th.OwnerID = "mutated"

	got, err := s.Get("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerID == "mutated" {
		t.Fatalf("expected stored copy unaffected by caller mutation")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	if err := s.Delete("missing"); err != nil {
		t.Fatalf("expected nil error deleting absent id, got %v", err)
	}
}

func TestScanFiltersByPredicate(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		th := sampleThought(id)
		if id == "b" {
			th.IsStale = true
		}
		if err := s.Put(th); err != nil {
			t.Fatal(err)
		}
	}

	fresh, err := s.Scan(context.Background(), func(t *thought.CachedThought) bool { return !t.IsStale })
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh thoughts, got %d", len(fresh))
	}
}

func TestScanRespectsCancelledContext(t *testing.T) {
	s := New()
	if err := s.Put(sampleThought("a")); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx, func(*thought.CachedThought) bool { return true }); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b"} {
		if err := s.Put(sampleThought(id)); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := s.Snapshot(path); err != nil {
		t.Fatal(err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 thoughts after load, got %d", loaded.Len())
	}
	if _, err := loaded.Get("a"); err != nil {
		t.Fatalf("expected thought a present after load: %v", err)
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(sampleThought("a")); !errors.Is(err, thought.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Get("a"); !errors.Is(err, thought.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

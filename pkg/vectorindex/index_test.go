package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched dims", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("cosineSimilarity(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSearchOrdersByScoreDescending(t *testing.T) {
	idx := New()
	if err := idx.Insert("a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert("b", []float32{0.7, 0.7}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert("c", []float32{0, 1}); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("expected a first, got %s", results[0].ID)
	}
	if results[2].ID != "c" {
		t.Fatalf("expected c last, got %s", results[2].ID)
	}
}

func TestSearchRespectsK(t *testing.T) {
	idx := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := idx.Insert(id, []float32{1, 0}); err != nil {
			t.Fatal(err)
		}
	}
	results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	idx := New()
	if err := idx.Remove("missing"); err != nil {
		t.Fatalf("expected nil error removing absent id, got %v", err)
	}
}

func TestSearchAfterCloseFails(t *testing.T) {
	idx := New()
	if err := idx.Insert("a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search(context.Background(), []float32{1, 0}, 1); !errors.Is(err, thought.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := idx.Insert("b", []float32{0, 1}); !errors.Is(err, thought.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSearchRespectsCancelledContext(t *testing.T) {
	idx := New()
	if err := idx.Insert("a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInsertCopiesVector(t *testing.T) {
	idx := New()
	vec := []float32{1, 2}
	if err := idx.Insert("a", vec); err != nil {
		t.Fatal(err)
	}
	vec[0] = 99
	results, err := idx.Search(context.Background(), []float32{1, 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score < 0.999 {
		t.Fatalf("expected stored vector unaffected by caller mutation, got score %v", results[0].Score)
	}
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

func chunkWithID(id string) domain.Chunk {
	return domain.Chunk{ID: id, DocumentID: "doc-1", Text: "text " + id}
}

func TestSearch_EmptyIndex(t *testing.T) {
	x := New()
	hits, err := x.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected empty result, got %d hits", len(hits))
	}
}

func TestSearch_OrderedByDescendingSimilarity(t *testing.T) {
	x := New()
	ctx := context.Background()

	// Vectors at increasing angles from the query direction.
	vectors := map[string][]float32{
		"far":    {0, 1},
		"near":   {1, 0.1},
		"middle": {1, 1},
	}
	for id, v := range vectors {
		if err := x.Insert(ctx, chunkWithID(id), v); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	hits, err := x.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}

	wantOrder := []string{"near", "middle", "far"}
	for i, want := range wantOrder {
		if hits[i].Chunk.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, hits[i].Chunk.ID)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not non-increasing at position %d", i)
		}
	}
}

func TestSearch_KCapsAtIndexSize(t *testing.T) {
	x := New()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := x.Insert(ctx, chunkWithID(fmt.Sprintf("c%d", i)), []float32{1, float32(i)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	hits, err := x.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 4 {
		t.Errorf("expected min(k, len) = 4 hits, got %d", len(hits))
	}

	hits, err = x.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	x := New()
	ctx := context.Background()

	// Identical vectors, so every score ties.
	for i := 0; i < 5; i++ {
		if err := x.Insert(ctx, chunkWithID(fmt.Sprintf("c%d", i)), []float32{1, 1}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	hits, err := x.Search(ctx, []float32{1, 1}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, h := range hits {
		if want := fmt.Sprintf("c%d", i); h.Chunk.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, h.Chunk.ID)
		}
	}
}

func TestSearch_Idempotent(t *testing.T) {
	x := New()
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if err := x.Insert(ctx, chunkWithID(fmt.Sprintf("c%d", i)), []float32{float32(i), 1}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	first, err := x.Search(ctx, []float32{3, 1}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := x.Search(ctx, []float32{3, 1}, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range first {
			if again[i].Chunk.ID != first[i].Chunk.ID || again[i].Score != first[i].Score {
				t.Fatalf("run %d: result differs at position %d", run, i)
			}
		}
	}
}

func TestInsert_DimensionFixedByFirstInsertion(t *testing.T) {
	x := New()
	ctx := context.Background()

	if err := x.Insert(ctx, chunkWithID("c0"), []float32{1, 2, 3}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if x.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", x.Dimension())
	}

	err := x.Insert(ctx, chunkWithID("c1"), []float32{1, 2})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestInsert_Concurrent(t *testing.T) {
	x := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-c%d", worker, i)
				if err := x.Insert(ctx, chunkWithID(id), []float32{float32(worker), float32(i)}); err != nil {
					t.Errorf("insert %s: %v", id, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if x.Len() != 400 {
		t.Errorf("expected 400 entries, got %d", x.Len())
	}
}

func TestEntries_InsertionOrder(t *testing.T) {
	x := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := x.Insert(ctx, chunkWithID(fmt.Sprintf("c%d", i)), []float32{1, float32(i)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	entries := x.Entries()
	for i, c := range entries {
		if want := fmt.Sprintf("c%d", i); c.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, c.ID)
		}
		if !c.Embedded() || c.Status != domain.ChunkIndexed {
			t.Errorf("entry %s should carry its embedding and be marked indexed", c.ID)
		}
	}
}

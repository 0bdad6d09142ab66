// Package memory provides an in-memory vector index with exact cosine
// similarity search. Each session owns one index; it is safe for concurrent
// insertion during a build and for reads concurrent with insertions.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry pairs a chunk with its insertion rank for stable tie-breaking.
type entry struct {
	chunk domain.Chunk
	rank  int
}

// Index is an exact nearest-neighbour index over chunk embeddings.
type Index struct {
	mu        sync.RWMutex
	entries   []entry
	dimension int
}

// New creates an empty index. Its dimension is fixed by the first insertion.
func New() *Index {
	return &Index{}
}

// Insert adds a chunk and its embedding. Concurrent insertions from
// independent batches are safe; correctness does not depend on their order.
func (x *Index) Insert(_ context.Context, chunk domain.Chunk, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("insert chunk %s: empty embedding", chunk.ID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = len(embedding)
	} else if len(embedding) != x.dimension {
		return fmt.Errorf("%w: got %d, index uses %d",
			domain.ErrDimensionMismatch, len(embedding), x.dimension)
	}

	chunk.Embedding = embedding
	chunk.Status = domain.ChunkIndexed
	x.entries = append(x.entries, entry{chunk: chunk, rank: len(x.entries)})
	return nil
}

// Search returns the min(k, Len()) most similar chunks, sorted by descending
// cosine similarity; equal scores keep insertion order. An empty index
// returns an empty result.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("search: k must be at least 1, got %d", k)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d, index uses %d",
			domain.ErrDimensionMismatch, len(query), x.dimension)
	}

	type scored struct {
		entry entry
		score float64
	}

	candidates := make([]scored, len(x.entries))
	for i, e := range x.entries {
		candidates[i] = scored{entry: e, score: cosineSimilarity(query, e.chunk.Embedding)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.rank < candidates[j].entry.rank
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = driven.VectorHit{
			Chunk: candidates[i].entry.chunk,
			Score: candidates[i].score,
		}
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimension returns the embedding dimension, or zero while empty.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Entries returns all indexed chunks in insertion order.
func (x *Index) Entries() []domain.Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	chunks := make([]domain.Chunk, len(x.entries))
	for i, e := range x.entries {
		chunks[i] = e.chunk
	}
	return chunks
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// accumulating in float64 for stability.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

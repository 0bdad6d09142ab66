package driven

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// VectorIndex provides similarity search over indexed chunks. The index is
// owned by exactly one session; insertions from concurrent embedding batches
// must be safe and order-independent.
type VectorIndex interface {
	// Insert adds a chunk and its embedding to the index.
	Insert(ctx context.Context, chunk domain.Chunk, embedding []float32) error

	// Search returns the min(k, Len()) most similar chunks to the query
	// vector, sorted by descending score with insertion-order tie-breaks.
	// An empty index yields an empty result, never an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed chunks.
	Len() int

	// Dimension returns the embedding dimension fixed by the first
	// insertion, or zero while the index is empty.
	Dimension() int

	// Entries returns all indexed chunks with their embeddings, in
	// insertion order. Used by the session store for persistence.
	Entries() []domain.Chunk
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Score is the cosine similarity to the query.
	Score float64
}

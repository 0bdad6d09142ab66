// Package chunker provides fixed-size sliding-window text chunking.
package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// Chunker splits source documents into overlapping text spans. Boundaries
// are purely positional; no syntactic awareness of code structure is
// attempted.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker for the given validated configuration.
// The chunk_overlap < chunk_size invariant is enforced by domain.Config, so a
// violation here means the caller bypassed config validation.
func New(cfg domain.Config) (*Chunker, error) {
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			domain.ErrInvalidConfig, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return &Chunker{
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
	}, nil
}

// Split cuts one document into chunks. A sliding window of chunkSize bytes
// advances by chunkSize-overlap per step, with both edges snapped forward to
// the next rune boundary so every chunk is valid UTF-8 on its own; the final
// window may be shorter. A document shorter than chunkSize yields exactly one
// chunk, and an empty document yields zero chunks without error.
func (c *Chunker) Split(doc domain.SourceDocument) ([]domain.Chunk, error) {
	if doc.Text == "" {
		return nil, nil
	}
	if !utf8.ValidString(doc.Text) {
		return nil, fmt.Errorf("%w: document %s is not valid text", domain.ErrChunking, doc.ID)
	}

	text := doc.Text
	textLen := len(text)
	step := c.chunkSize - c.overlap

	chunks := make([]domain.Chunk, 0, textLen/step+1)

	for pos := 0; pos < textLen; pos += step {
		start := snapToRune(text, pos)
		if start >= textLen {
			break
		}
		end := snapToRune(text, min(start+c.chunkSize, textLen))

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Status:     domain.ChunkPending,
			Origin:     doc.Origin,
			Locator:    doc.Locator,
			Number:     doc.Number,
			URL:        doc.URL,
		})

		if end == textLen {
			break
		}
	}

	return chunks, nil
}

// snapToRune advances i to the nearest rune boundary at or after it. A
// window edge that lands inside a multi-byte rune moves past it, so a chunk
// may exceed chunkSize by up to three bytes.
func snapToRune(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// SplitAll chunks a batch of documents. Documents that cannot be chunked are
// skipped and reported; one bad input never aborts the whole batch.
func (c *Chunker) SplitAll(docs []domain.SourceDocument) ([]domain.Chunk, []error) {
	var chunks []domain.Chunk
	var errs []error

	for _, doc := range docs {
		dc, err := c.Split(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		chunks = append(chunks, dc...)
	}

	return chunks, errs
}

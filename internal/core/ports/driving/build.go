package driving

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// BuildReport summarises one knowledge-base build.
type BuildReport struct {
	// SessionID is the id of the session that was built.
	SessionID string

	// Documents is the number of documents collected.
	Documents int

	// SkippedDocuments is the number of documents dropped during chunking.
	SkippedDocuments int

	// Chunks is the total number of chunks produced.
	Chunks int

	// IndexedChunks is the number of chunks that received an embedding.
	IndexedChunks int

	// FailedChunks is the number of chunks marked error after exhausting
	// embedding retries.
	FailedChunks int
}

// BuildService constructs a session's knowledge base from a repository:
// collect, chunk, embed, index, persist.
type BuildService interface {
	// Build runs a full knowledge-base build and persists the resulting
	// session. The session ends ready even when some chunks failed; a
	// collector failure or an unrecoverable provider failure ends it in
	// the error state.
	Build(ctx context.Context, repoURL string, sel driven.ContentSelection, cfg domain.Config) (BuildReport, error)
}

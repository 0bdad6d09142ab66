package driven

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// SessionRecord is the unit the session store persists: the session plus the
// full content of its vector index. Memory travels inside Session.
type SessionRecord struct {
	// Session is the session metadata, config snapshot, and memory.
	Session *domain.Session

	// Chunks are the indexed chunks with embeddings, in insertion order.
	Chunks []domain.Chunk
}

// SessionStore persists and reloads sessions. Save is atomic: a crash
// mid-write leaves either the previous complete state or the new complete
// state observable, never a mix.
type SessionStore interface {
	// Save persists the record, replacing any previous state for the same
	// session id as a single atomic unit.
	Save(ctx context.Context, rec SessionRecord) error

	// Load reconstructs a session. Fails with domain.ErrSessionNotFound if
	// the id is unknown, or domain.ErrSessionCorrupted if data is present
	// but unreadable or inconsistent.
	Load(ctx context.Context, sessionID string) (SessionRecord, error)

	// List returns the metadata of every persisted session, newest first.
	// Chunks are not loaded.
	List(ctx context.Context) ([]*domain.Session, error)

	// Delete removes a session and everything it owns.
	Delete(ctx context.Context, sessionID string) error

	// Close releases resources.
	Close() error
}

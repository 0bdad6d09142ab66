package driving

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// SessionService manages persisted sessions.
type SessionService interface {
	// List returns the metadata of every persisted session, newest first.
	List(ctx context.Context) ([]*domain.Session, error)

	// Get loads a single session's metadata.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes a session and everything it owns.
	Delete(ctx context.Context, sessionID string) error
}

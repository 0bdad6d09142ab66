package services

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/core/ports/driving"
)

// Ensure Sessions implements the interface.
var _ driving.SessionService = (*Sessions)(nil)

// Sessions manages persisted sessions.
type Sessions struct {
	store driven.SessionStore
}

// NewSessions creates a session service.
func NewSessions(store driven.SessionStore) *Sessions {
	return &Sessions{store: store}
}

// List returns the metadata of every persisted session, newest first.
func (s *Sessions) List(ctx context.Context) ([]*domain.Session, error) {
	return s.store.List(ctx)
}

// Get loads a single session's metadata.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	rec, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rec.Session, nil
}

// Delete removes a session and everything it owns.
func (s *Sessions) Delete(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks a session through its lifecycle. Transitions are
// monotonic: building moves to ready or error and never back. A rebuild
// creates a fresh session rather than reverting an existing one.
type SessionStatus string

// Session lifecycle states.
const (
	// SessionBuilding means the knowledge base is being constructed.
	SessionBuilding SessionStatus = "building"

	// SessionReady means the session is queryable.
	SessionReady SessionStatus = "ready"

	// SessionError means the build failed.
	SessionError SessionStatus = "error"
)

// IsValid returns true if the status is recognised.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionBuilding, SessionReady, SessionError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s SessionStatus) String() string {
	return string(s)
}

// Session is the persisted state of one repository analysis: its vector
// index, conversation memory, and the configuration snapshot the index was
// built with. A session exclusively owns its index and memory; nothing is
// shared across sessions.
type Session struct {
	// ID is the globally unique session identifier.
	ID string

	// RepoURL is the repository this session answers questions about.
	RepoURL string

	// CreatedAt is when the build started.
	CreatedAt time.Time

	// Config is the configuration snapshot taken at build time.
	Config Config

	// Status is the lifecycle state.
	Status SessionStatus

	// Dimension is the embedding dimension fixed for this session by the
	// embedding model in use. Zero until the first embedding arrives.
	Dimension int

	// Memory is the bounded conversation history.
	Memory *MemoryWindow
}

// NewSessionID forms an identifier from a UTC build timestamp plus a short
// random suffix, giving practical global uniqueness while staying readable.
func NewSessionID(now time.Time) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), suffix)
}

// NewSession creates a session in the building state.
func NewSession(repoURL string, cfg Config, now time.Time) *Session {
	return &Session{
		ID:        NewSessionID(now),
		RepoURL:   repoURL,
		CreatedAt: now.UTC(),
		Config:    cfg,
		Status:    SessionBuilding,
		Memory:    NewMemoryWindow(cfg.MemoryWindow, cfg.UseMemory),
	}
}

// MarkReady transitions the session out of the building state. It is an
// error to mark a non-building session.
func (s *Session) MarkReady() error {
	if s.Status != SessionBuilding {
		return fmt.Errorf("session %s: cannot transition %s -> %s", s.ID, s.Status, SessionReady)
	}
	s.Status = SessionReady
	return nil
}

// MarkError transitions the session to the error state. It is an error to
// mark a non-building session.
func (s *Session) MarkError() error {
	if s.Status != SessionBuilding {
		return fmt.Errorf("session %s: cannot transition %s -> %s", s.ID, s.Status, SessionError)
	}
	s.Status = SessionError
	return nil
}

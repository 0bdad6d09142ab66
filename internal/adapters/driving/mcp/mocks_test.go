package mcp

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer domain.Answer
	err    error

	gotSessionID string
	gotQuestion  string
}

func (m *mockAskService) Ask(_ context.Context, sessionID, question string) (domain.Answer, error) {
	m.gotSessionID = sessionID
	m.gotQuestion = question
	return m.answer, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	sessions []*domain.Session
	session  *domain.Session
	err      error
}

func (m *mockSessionService) List(_ context.Context) ([]*domain.Session, error) {
	return m.sessions, m.err
}

func (m *mockSessionService) Get(_ context.Context, _ string) (*domain.Session, error) {
	return m.session, m.err
}

func (m *mockSessionService) Delete(_ context.Context, _ string) error {
	return m.err
}

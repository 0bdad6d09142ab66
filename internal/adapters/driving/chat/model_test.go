package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

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

func typeAndSubmit(m *Model, question string) tea.Cmd {
	m.input.SetValue(question)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestModel_SubmitRunsAskService(t *testing.T) {
	ask := &mockAskService{
		answer: domain.Answer{
			Text: "The README greets the world.",
			Citations: []domain.Citation{
				{Origin: domain.OriginFile, Locator: "README.md"},
			},
		},
	}
	m := NewModel(ask, "sess-1", "https://github.com/acme/demo")

	cmd := typeAndSubmit(m, "What does the README say?")
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	received, ok := msg.(answerReceived)
	require.True(t, ok, "expected answerReceived, got %T", msg)
	require.NoError(t, received.err)
	assert.Equal(t, "sess-1", ask.gotSessionID)
	assert.Equal(t, "What does the README say?", ask.gotQuestion)

	m.Update(received)
	assert.False(t, m.waiting)

	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "What does the README say?")
	assert.Contains(t, transcript, "The README greets the world.")
	assert.Contains(t, transcript, "README.md")
}

func TestModel_EmptyQuestionIgnored(t *testing.T) {
	m := NewModel(&mockAskService{}, "sess-1", "repo")
	cmd := typeAndSubmit(m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Empty(t, m.entries)
}

func TestModel_SubmitWhileWaitingIgnored(t *testing.T) {
	m := NewModel(&mockAskService{}, "sess-1", "repo")
	require.NotNil(t, typeAndSubmit(m, "first"))

	cmd := typeAndSubmit(m, "second")
	assert.Nil(t, cmd)
	assert.Len(t, m.entries, 1)
}

func TestModel_AskFailureShownInTranscript(t *testing.T) {
	ask := &mockAskService{err: errors.New("answer generation failed")}
	m := NewModel(ask, "sess-1", "repo")

	cmd := typeAndSubmit(m, "Hello?")
	require.NotNil(t, cmd)
	m.Update(cmd())

	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "answer generation failed")
	assert.False(t, m.waiting)
}

func TestModel_QuitKeys(t *testing.T) {
	m := NewModel(&mockAskService{}, "sess-1", "repo")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderCitations(t *testing.T) {
	out := renderCitations([]domain.Citation{
		{Origin: domain.OriginFile, Locator: "README.md"},
		{Origin: domain.OriginIssue, Number: 1, URL: "https://github.com/acme/demo/issues/1"},
		{Origin: domain.OriginPullRequest, Number: 2, URL: "https://github.com/acme/demo/pull/2"},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "[1] README.md")
	assert.Contains(t, lines[2], "[2] Issue #1 (https://github.com/acme/demo/issues/1)")
	assert.Contains(t, lines[3], "[3] PR #2 (https://github.com/acme/demo/pull/2)")
}

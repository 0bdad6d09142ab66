package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driving"
)

// answerReceived carries the ask service result back into the update loop.
type answerReceived struct {
	answer domain.Answer
	err    error
}

// entry is one exchange in the transcript. The answer and err fields stay
// empty while the question is in flight.
type entry struct {
	question string
	answer   *domain.Answer
	err      error
}

// Model is the Bubbletea model for the conversation loop. One model owns one
// session; questions are submitted strictly one at a time, which also keeps
// the session serialisation contract of the ask service.
type Model struct {
	styles    *Styles
	ask       driving.AskService
	ctx       context.Context
	sessionID string
	repoURL   string

	viewport viewport.Model
	input    textinput.Model
	entries  []entry

	waiting bool
	ready   bool
	width   int
	height  int
}

// NewModel creates a chat model for the given session.
func NewModel(ask driving.AskService, sessionID, repoURL string) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the repository..."
	ti.Focus()
	ti.CharLimit = 512

	return &Model{
		styles:    DefaultStyles(),
		ask:       ask,
		ctx:       context.Background(),
		sessionID: sessionID,
		repoURL:   repoURL,
		viewport:  viewport.New(80, 20),
		input:     ti,
		width:     80,
		height:    24,
	}
}

// WithContext sets the context used for ask calls.
func (m *Model) WithContext(ctx context.Context) *Model {
	m.ctx = ctx
	return m
}

// Init initialises the model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6
		// Three lines for the input box, one for the footer.
		m.viewport = viewport.New(msg.Width, max(msg.Height-4, 1))
		m.refreshTranscript()
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		}

	case answerReceived:
		m.waiting = false
		last := &m.entries[len(m.entries)-1]
		if msg.err != nil {
			last.err = msg.err
		} else {
			answer := msg.answer
			last.answer = &answer
		}
		m.refreshTranscript()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit sends the current input to the ask service.
func (m *Model) submit() tea.Cmd {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.waiting {
		return nil
	}

	m.entries = append(m.entries, entry{question: question})
	m.input.SetValue("")
	m.waiting = true
	m.refreshTranscript()

	return func() tea.Msg {
		answer, err := m.ask.Ask(m.ctx, m.sessionID, question)
		return answerReceived{answer: answer, err: err}
	}
}

// View renders the chat.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Input.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(m.statusLine()))
	return b.String()
}

func (m *Model) statusLine() string {
	if m.waiting {
		return "Thinking..."
	}
	return fmt.Sprintf("%s | session %s | Enter to ask, Esc to quit", m.repoURL, m.sessionID)
}

// refreshTranscript re-renders the conversation into the viewport and keeps
// the latest exchange visible.
func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for i := range m.entries {
		e := &m.entries[i]
		b.WriteString(m.styles.Question.Render("> " + e.question))
		b.WriteString("\n\n")

		switch {
		case e.err != nil:
			b.WriteString(m.styles.Error.Render("error: " + e.err.Error()))
			b.WriteString("\n")
		case e.answer != nil:
			b.WriteString(m.styles.Answer.Render(e.answer.Text))
			b.WriteString("\n")
			if len(e.answer.Citations) > 0 {
				b.WriteString(m.styles.Citation.Render(renderCitations(e.answer.Citations)))
				b.WriteString("\n")
			}
		default:
			b.WriteString(m.styles.Status.Render("..."))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderCitations formats the source list shown under an answer, one line
// per retrieved chunk, in retrieval order.
func renderCitations(citations []domain.Citation) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for i, c := range citations {
		b.WriteString(fmt.Sprintf("\n  [%d] %s", i+1, citationLabel(c)))
	}
	return b.String()
}

func citationLabel(c domain.Citation) string {
	switch c.Origin {
	case domain.OriginIssue:
		return fmt.Sprintf("Issue #%d (%s)", c.Number, c.URL)
	case domain.OriginPullRequest:
		return fmt.Sprintf("PR #%d (%s)", c.Number, c.URL)
	default:
		return c.Locator
	}
}

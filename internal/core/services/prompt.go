package services

import (
	"fmt"
	"strings"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

const systemPrompt = `You are a repository assistant. You answer questions about a software repository using only the context excerpts provided with each question. The excerpts come from source files, issues, and pull requests of the repository.

Ground every statement in the excerpts. When the excerpts do not contain the answer, say so instead of guessing. Be concise.`

// buildMessages composes the chat request for one query: the system prompt,
// the remembered conversation turns as alternating user/assistant messages,
// and a final user message holding the retrieved excerpts plus the question.
func buildMessages(question string, hits []driven.VectorHit, history []domain.ConversationTurn) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: systemPrompt})

	for _, turn := range history {
		messages = append(messages,
			driven.ChatMessage{Role: "user", Content: turn.Query},
			driven.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}

	messages = append(messages, driven.ChatMessage{Role: "user", Content: userMessage(question, hits)})
	return messages
}

// userMessage renders the retrieved excerpts and the question into one
// message. Each excerpt is labelled with its source so the model can refer
// to it.
func userMessage(question string, hits []driven.VectorHit) string {
	var b strings.Builder

	if len(hits) > 0 {
		b.WriteString("Context excerpts from the repository:\n\n")
		for i, hit := range hits {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, sourceLabel(hit.Chunk), hit.Chunk.Text)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func sourceLabel(c domain.Chunk) string {
	switch c.Origin {
	case domain.OriginIssue:
		return fmt.Sprintf("Issue #%d", c.Number)
	case domain.OriginPullRequest:
		return fmt.Sprintf("Pull request #%d", c.Number)
	default:
		return fmt.Sprintf("File %s", c.Locator)
	}
}

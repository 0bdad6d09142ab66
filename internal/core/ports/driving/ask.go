package driving

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// AskService answers natural-language questions against a ready session.
// Calls for the same session must be serialised by the caller; the single
// active conversation loop owns session mutation.
type AskService interface {
	// Ask retrieves relevant chunks, generates an answer with citations,
	// appends the turn to memory, and persists the session. A generation
	// failure leaves memory and persisted state untouched.
	Ask(ctx context.Context, sessionID, question string) (domain.Answer, error)
}

package driven

import (
	"context"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// ContentSelection restricts which origin types a collection fetches.
type ContentSelection struct {
	// Code fetches repository source files.
	Code bool

	// Issues fetches issues with their comment threads.
	Issues bool

	// PullRequests fetches pull requests with their comment threads.
	PullRequests bool
}

// AllContent selects every origin type.
func AllContent() ContentSelection {
	return ContentSelection{Code: true, Issues: true, PullRequests: true}
}

// Empty returns true if nothing is selected.
func (s ContentSelection) Empty() bool {
	return !s.Code && !s.Issues && !s.PullRequests
}

// Collector fetches the documents of one repository. The core treats it as
// an opaque producer; failures are reported as domain.ErrCollection and are
// fatal for the build that triggered them.
type Collector interface {
	// ListDocuments fetches all selected documents for the repository.
	ListDocuments(ctx context.Context, repoURL string, sel ContentSelection) ([]domain.SourceDocument, error)

	// Validate checks the collector can reach the repository.
	Validate(ctx context.Context, repoURL string) error

	// Close releases resources.
	Close() error
}

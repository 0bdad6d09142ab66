// Package github collects repository content through the GitHub API: source
// files from the default branch tree, plus issues and pull requests with
// their comment threads flattened into retrievable text.
package github

import (
	"context"
	"fmt"
	"time"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/logger"
)

// Ensure Collector implements the interface.
var _ driven.Collector = (*Collector)(nil)

// Collector fetches repository documents through the GitHub API.
type Collector struct {
	client *Client
}

// NewCollector creates a collector. An empty token gives anonymous access.
func NewCollector(ctx context.Context, token string) *Collector {
	return &Collector{client: NewClient(ctx, token)}
}

// NewCollectorWithClient creates a collector around an existing client.
// Used by tests to inject a stub-backed client.
func NewCollectorWithClient(client *Client) *Collector {
	return &Collector{client: client}
}

// ListDocuments fetches all selected documents for the repository.
func (c *Collector) ListDocuments(
	ctx context.Context, repoURL string, sel driven.ContentSelection,
) ([]domain.SourceDocument, error) {
	if sel.Empty() {
		return nil, fmt.Errorf("%w: nothing selected to collect", domain.ErrCollection)
	}

	owner, name, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCollection, err)
	}

	repo, err := c.client.GetRepository(ctx, owner, name)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCollection, ErrRepoNotFound)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCollection, err)
	}

	now := time.Now().UTC()
	var docs []domain.SourceDocument

	if sel.Code {
		logger.Debug("github: fetching files for %s/%s", owner, name)
		files, err := fetchFiles(ctx, c.client, repo, now)
		if err != nil {
			return nil, fmt.Errorf("%w: files: %w", domain.ErrCollection, err)
		}
		logger.Debug("github: fetched %d files", len(files))
		docs = append(docs, files...)
	}

	if sel.Issues {
		logger.Debug("github: fetching issues for %s/%s", owner, name)
		issues, err := fetchIssues(ctx, c.client, repo, now)
		if err != nil {
			return nil, fmt.Errorf("%w: issues: %w", domain.ErrCollection, err)
		}
		logger.Debug("github: fetched %d issues", len(issues))
		docs = append(docs, issues...)
	}

	if sel.PullRequests {
		logger.Debug("github: fetching pull requests for %s/%s", owner, name)
		prs, err := fetchPullRequests(ctx, c.client, repo, now)
		if err != nil {
			return nil, fmt.Errorf("%w: pull requests: %w", domain.ErrCollection, err)
		}
		logger.Debug("github: fetched %d pull requests", len(prs))
		docs = append(docs, prs...)
	}

	return docs, nil
}

// Validate checks the collector can reach the repository.
func (c *Collector) Validate(ctx context.Context, repoURL string) error {
	owner, name, err := ParseRepoURL(repoURL)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCollection, err)
	}

	if _, err := c.client.GetRepository(ctx, owner, name); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %w", domain.ErrCollection, ErrRepoNotFound)
		}
		return fmt.Errorf("%w: %w", domain.ErrCollection, err)
	}
	return nil
}

// Close releases resources.
func (c *Collector) Close() error {
	return nil
}

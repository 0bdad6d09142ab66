package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/google/uuid"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// fetchPullRequests retrieves all pull requests and renders each, with its
// diff stats and comment thread, into a single document.
func fetchPullRequests(
	ctx context.Context, client *Client, repo *gh.Repository, now time.Time,
) ([]domain.SourceDocument, error) {
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	prs, err := client.ListPullRequests(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(prs))
	for _, pr := range prs {
		// The list endpoint omits diff stats; fetch the full PR when they
		// are missing. Not worth failing the whole collection over.
		if pr.Additions == nil {
			if full, err := client.GetPullRequest(ctx, owner, name, pr.GetNumber()); err == nil {
				pr = full
			}
		}

		comments, commErr := client.ListIssueComments(ctx, owner, name, pr.GetNumber())
		if commErr != nil {
			comments = nil
		}

		docs = append(docs, domain.SourceDocument{
			ID:          uuid.New().String(),
			Origin:      domain.OriginPullRequest,
			Locator:     strconv.Itoa(pr.GetNumber()),
			Number:      pr.GetNumber(),
			Label:       pr.GetTitle(),
			URL:         pr.GetHTMLURL(),
			Text:        renderPullRequest(pr, comments),
			RetrievedAt: now,
		})
	}

	return docs, nil
}

// renderPullRequest flattens a pull request, its diff stats, and its comment
// thread into retrievable text.
func renderPullRequest(pr *gh.PullRequest, comments []*gh.IssueComment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PULL REQUEST #%d: %s\n\n%s", pr.GetNumber(), pr.GetTitle(), pr.GetBody())

	if pr.Additions != nil || pr.Deletions != nil {
		fmt.Fprintf(&b, "\nAdditions: %d, Deletions: %d", pr.GetAdditions(), pr.GetDeletions())
	}
	if pr.Merged != nil {
		status := "not merged"
		if pr.GetMerged() {
			status = "merged"
		}
		fmt.Fprintf(&b, "\nMerge status: %s", status)
	}

	appendComments(&b, comments)
	return b.String()
}

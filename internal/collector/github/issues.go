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

// fetchIssues retrieves all issues (excluding PRs) from a repository and
// renders each, with its full comment thread, into a single document.
func fetchIssues(
	ctx context.Context, client *Client, repo *gh.Repository, now time.Time,
) ([]domain.SourceDocument, error) {
	if !repo.GetHasIssues() {
		return nil, nil
	}

	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	issues, err := client.ListIssues(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(issues))
	for _, issue := range issues {
		// Pull requests show up in the issues endpoint too.
		if issue.IsPullRequest() {
			continue
		}

		comments, commErr := client.ListIssueComments(ctx, owner, name, issue.GetNumber())
		if commErr != nil {
			// An unreadable thread still leaves the issue body usable.
			comments = nil
		}

		docs = append(docs, domain.SourceDocument{
			ID:          uuid.New().String(),
			Origin:      domain.OriginIssue,
			Locator:     strconv.Itoa(issue.GetNumber()),
			Number:      issue.GetNumber(),
			Label:       issue.GetTitle(),
			URL:         issue.GetHTMLURL(),
			Text:        renderIssue(issue, comments),
			RetrievedAt: now,
		})
	}

	return docs, nil
}

// renderIssue flattens an issue and its comment thread into retrievable text.
func renderIssue(issue *gh.Issue, comments []*gh.IssueComment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ISSUE #%d: %s\n\n%s", issue.GetNumber(), issue.GetTitle(), issue.GetBody())
	appendComments(&b, comments)
	return b.String()
}

// appendComments renders a comment thread onto an issue or PR body.
func appendComments(b *strings.Builder, comments []*gh.IssueComment) {
	if len(comments) == 0 {
		return
	}
	b.WriteString("\n\n--- COMMENTS ---\n")
	for i, c := range comments {
		fmt.Fprintf(b, "\nCOMMENT #%d by %s at %s:\n%s\n",
			i+1,
			c.GetUser().GetLogin(),
			c.GetCreatedAt().Format(time.RFC3339),
			c.GetBody())
	}
}

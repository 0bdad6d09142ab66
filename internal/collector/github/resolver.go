package github

import (
	"fmt"
	"strings"
)

// ParseRepoURL extracts the owner and repository name from the forms users
// actually paste:
//
//	https://github.com/owner/repo
//	https://github.com/owner/repo.git
//	git@github.com:owner/repo.git
//	owner/repo
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	s := strings.TrimSpace(repoURL)
	if s == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}

	s = strings.TrimPrefix(s, "git@github.com:")
	s = strings.TrimPrefix(s, "https://github.com/")
	s = strings.TrimPrefix(s, "http://github.com/")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, repoURL)
	}
	if strings.ContainsAny(parts[0]+parts[1], " :@") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, repoURL)
	}

	return parts[0], parts[1], nil
}

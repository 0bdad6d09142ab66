package github

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/google/uuid"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

// maxFileSize caps fetched files at 1MB; larger blobs are almost never prose
// or code worth indexing.
const maxFileSize = 1024 * 1024

// fetchFiles retrieves all text files from a repository tree.
func fetchFiles(
	ctx context.Context, client *Client, repo *gh.Repository, now time.Time,
) ([]domain.SourceDocument, error) {
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()
	branch := repo.GetDefaultBranch()

	tree, err := client.GetTree(ctx, owner, name, branch)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.SourceDocument, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		if entry.GetType() != "blob" {
			continue
		}

		path := entry.GetPath()
		if isBinaryExtension(path) {
			continue
		}
		if entry.GetSize() > maxFileSize {
			continue
		}

		content, err := fetchBlobContent(ctx, client, owner, name, entry.GetSHA())
		if err != nil {
			// Skip files we can't read
			continue
		}

		docs = append(docs, domain.SourceDocument{
			ID:          uuid.New().String(),
			Origin:      domain.OriginFile,
			Locator:     path,
			Label:       languageFromPath(path),
			Text:        string(content),
			RetrievedAt: now,
		})
	}

	return docs, nil
}

// fetchBlobContent fetches the content of a blob and decodes it.
func fetchBlobContent(ctx context.Context, client *Client, owner, repo, sha string) ([]byte, error) {
	blob, err := client.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}

	if blob.GetEncoding() == "base64" {
		// Remove any whitespace from base64 content
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(content)
	}

	return []byte(blob.GetContent()), nil
}

// extLanguages maps file extensions to language labels.
var extLanguages = map[string]string{
	".go": "go", ".py": "python", ".rs": "rust", ".rb": "ruby",
	".js": "javascript", ".jsx": "javascript", ".ts": "typescript", ".tsx": "typescript",
	".java": "java", ".kt": "kotlin", ".kts": "kotlin", ".swift": "swift",
	".c": "c", ".h": "c", ".cpp": "cpp", ".cc": "cpp", ".hpp": "cpp",
	".cs": "csharp", ".php": "php", ".scala": "scala",
	".md": "markdown", ".markdown": "markdown", ".rst": "restructuredtext",
	".yaml": "yaml", ".yml": "yaml", ".toml": "toml", ".json": "json",
	".sh": "shell", ".bash": "shell", ".sql": "sql",
	".html": "html", ".css": "css", ".vue": "vue", ".svelte": "svelte",
}

// languageFromPath determines a language label from the file extension.
func languageFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	return "text"
}

// isBinaryExtension checks if a file extension indicates a binary file.
func isBinaryExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]bool{
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
		".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
		".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
		".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
		".bin": true, ".dat": true, ".db": true, ".sqlite": true,
		".pyc": true, ".pyo": true, ".class": true, ".o": true, ".a": true,
	}
	return binaryExts[ext]
}

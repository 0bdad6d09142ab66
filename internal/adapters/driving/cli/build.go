package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repochat/repochat-cli/internal/adapters/driven/ai"
	"github.com/repochat/repochat-cli/internal/adapters/driven/config/file"
	"github.com/repochat/repochat-cli/internal/collector/github"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/core/services"
)

// Flags for build.
var (
	buildContent      string
	buildChunkSize    int
	buildChunkOverlap int
)

var buildCmd = &cobra.Command{
	Use:   "build [repo-url]",
	Short: "Build a knowledge base from a repository",
	Long: `Collects the selected content from a GitHub repository, chunks and
embeds it, and persists the result as a new session.

Examples:
  repochat build https://github.com/owner/repo
  repochat build https://github.com/owner/repo --content code,issues
  repochat build https://github.com/owner/repo --chunk-size 500`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(
		&buildContent, "content", "code,issues,pulls", "content types to index (code, issues, pulls)")
	buildCmd.Flags().IntVar(
		&buildChunkSize, "chunk-size", 0, "chunk size in characters (0 = configured default)")
	buildCmd.Flags().IntVar(
		&buildChunkOverlap, "chunk-overlap", -1, "chunk overlap in characters (-1 = configured default)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	repoURL := args[0]

	sel, err := parseContentSelection(buildContent)
	if err != nil {
		return err
	}

	cfgStore, err := openConfigStore()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgStore)
	if err != nil {
		return err
	}
	if buildChunkSize > 0 {
		cfg.ChunkSize = buildChunkSize
	}
	if buildChunkOverlap >= 0 {
		cfg.ChunkOverlap = buildChunkOverlap
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(&cfg.Embedding)
	if err != nil {
		return err
	}
	defer embedder.Close() //nolint:errcheck

	collector := github.NewCollector(cmd.Context(), file.GitHubToken(cfgStore))
	defer collector.Close() //nolint:errcheck

	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	builder := services.NewBuilder(collector, embedder, store, newExecutor(), newIndex)
	report, err := builder.Build(cmd.Context(), repoURL, sel, cfg)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	cmd.Printf("Session %s is ready.\n", report.SessionID)
	cmd.Printf("  Documents: %d (%d skipped)\n", report.Documents, report.SkippedDocuments)
	cmd.Printf("  Chunks:    %d indexed, %d failed\n", report.IndexedChunks, report.FailedChunks)
	cmd.Println()
	cmd.Printf("Start chatting with:  repochat chat %s\n", report.SessionID)
	return nil
}

// parseContentSelection turns the --content flag into a selection.
func parseContentSelection(value string) (driven.ContentSelection, error) {
	var sel driven.ContentSelection
	for _, part := range strings.Split(value, ",") {
		switch strings.TrimSpace(part) {
		case "code":
			sel.Code = true
		case "issues":
			sel.Issues = true
		case "pulls", "prs":
			sel.PullRequests = true
		case "":
		default:
			return sel, fmt.Errorf("unknown content type %q (use code, issues, pulls)", part)
		}
	}
	if sel.Empty() {
		return sel, fmt.Errorf("no content types selected")
	}
	return sel, nil
}

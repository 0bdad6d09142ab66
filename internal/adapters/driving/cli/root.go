// Package cli implements the repochat command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repochat/repochat-cli/internal/adapters/driven/ai"
	"github.com/repochat/repochat-cli/internal/adapters/driven/config/file"
	"github.com/repochat/repochat-cli/internal/adapters/driven/storage/sqlite"
	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/core/services"
	"github.com/repochat/repochat-cli/internal/logger"
	"github.com/repochat/repochat-cli/internal/resilience"
	"github.com/repochat/repochat-cli/internal/vectorindex/memory"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "repochat",
	Short: "Ask questions about GitHub repositories",
	Long: `Repochat builds a searchable knowledge base from a GitHub repository's
code, issues, and pull requests, then answers natural-language questions
about it with citations back to the sources.

Typical workflow:
  repochat auth                                  # configure providers
  repochat build https://github.com/owner/repo   # build a session
  repochat chat <session-id>                     # converse
  repochat ask <session-id> "How does X work?"   # one-shot question`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// configDir resolves the repochat configuration directory. The
// REPOCHAT_CONFIG_DIR environment variable overrides the default
// ~/.repochat, mainly for tests.
func configDir() (string, error) {
	if dir := os.Getenv("REPOCHAT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".repochat"), nil
}

func openConfigStore() (*file.ConfigStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return file.NewConfigStore(dir)
}

func openSessionStore() (*sqlite.Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(dir)
}

// newExecutor creates the resilience executor shared by every provider call
// of one command invocation.
func newExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		Policy:        resilience.DefaultPolicy(),
		RatePerSecond: 8,
		Burst:         4,
		CallTimeout:   resilience.DefaultCallTimeout,
	})
}

func newIndex() driven.VectorIndex {
	return memory.New()
}

// loadConfig assembles the domain configuration from the config file,
// including provider settings.
func loadConfig(store driven.ConfigStore) (domain.Config, error) {
	cfg, err := file.BuildConfig(store)
	if err != nil {
		return domain.Config{}, err
	}
	cfg.Embedding = file.EmbeddingSettings(store)
	cfg.LLM = file.LLMSettings(store)
	return cfg, nil
}

// buildAnswerer wires the full ask path: session store, embedding and chat
// providers, resilience executor. The returned cleanup closes everything.
func buildAnswerer() (*services.Answerer, *sqlite.Store, func(), error) {
	cfgStore, err := openConfigStore()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := loadConfig(cfgStore)
	if err != nil {
		return nil, nil, nil, err
	}

	embedder, err := ai.CreateEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, nil, nil, err
	}
	llm, err := ai.CreateLLMService(&cfg.LLM)
	if err != nil {
		embedder.Close() //nolint:errcheck
		return nil, nil, nil, err
	}
	store, err := openSessionStore()
	if err != nil {
		embedder.Close() //nolint:errcheck
		llm.Close()      //nolint:errcheck
		return nil, nil, nil, err
	}

	cleanup := func() {
		embedder.Close() //nolint:errcheck
		llm.Close()      //nolint:errcheck
		store.Close()    //nolint:errcheck
	}
	answerer := services.NewAnswerer(store, embedder, llm, newExecutor(), newIndex)
	return answerer, store, cleanup, nil
}

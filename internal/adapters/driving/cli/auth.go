package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/repochat/repochat-cli/internal/adapters/driven/config/file"
	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// Flags for auth.
var (
	authEmbedProvider string
	authEmbedModel    string
	authLLMProvider   string
	authLLMModel      string
	authGitHubToken   bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure AI providers and credentials",
	Long: `Configures the embedding provider, the chat provider, and an optional
GitHub token. Settings are written to the config file; API keys are
prompted for and never accepted as flags, keeping them out of shell
history.

Examples:
  repochat auth                                   # interactive wizard
  repochat auth --embedding-provider openai --llm-provider anthropic
  repochat auth --github-token                    # (re)set the GitHub token`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(
		&authEmbedProvider, "embedding-provider", "", "embedding provider (openai, ollama)")
	authCmd.Flags().StringVar(
		&authEmbedModel, "embedding-model", "", "embedding model (provider default if empty)")
	authCmd.Flags().StringVar(
		&authLLMProvider, "llm-provider", "", "chat provider (openai, anthropic, ollama)")
	authCmd.Flags().StringVar(
		&authLLMModel, "llm-model", "", "chat model (provider default if empty)")
	authCmd.Flags().BoolVar(
		&authGitHubToken, "github-token", false, "prompt for a GitHub token for private repos and higher rate limits")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	embedProvider := authEmbedProvider
	if embedProvider == "" {
		embedProvider, err = promptLine(cmd, reader,
			"Embedding provider (openai, ollama)", store.GetString(file.KeyEmbedProvider))
		if err != nil {
			return err
		}
	}
	if err := configureEmbedding(cmd, reader, store, embedProvider, authEmbedModel); err != nil {
		return err
	}

	llmProvider := authLLMProvider
	if llmProvider == "" {
		llmProvider, err = promptLine(cmd, reader,
			"Chat provider (openai, anthropic, ollama)", store.GetString(file.KeyLLMProvider))
		if err != nil {
			return err
		}
	}
	if err := configureLLM(cmd, reader, store, llmProvider, authLLMModel); err != nil {
		return err
	}

	if authGitHubToken {
		token, err := readSecret(cmd, reader, "GitHub token")
		if err != nil {
			return err
		}
		if err := store.Set(file.KeyGitHubToken, token); err != nil {
			return err
		}
	}

	if err := store.Save(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	cmd.Printf("Configuration saved to %s\n", store.Path())
	return nil
}

func configureEmbedding(
	cmd *cobra.Command, reader *bufio.Reader, store driven.ConfigStore, provider, model string,
) error {
	p := domain.AIProvider(provider)
	if !p.IsValid() || p == domain.AIProviderAnthropic {
		return fmt.Errorf("unsupported embedding provider %q (use openai or ollama)", provider)
	}
	if err := store.Set(file.KeyEmbedProvider, provider); err != nil {
		return err
	}
	if model != "" {
		if err := store.Set(file.KeyEmbedModel, model); err != nil {
			return err
		}
	}
	if p.RequiresAPIKey() {
		key, err := readSecret(cmd, reader, fmt.Sprintf("%s API key (embeddings)", provider))
		if err != nil {
			return err
		}
		if err := store.Set(file.KeyEmbedAPIKey, key); err != nil {
			return err
		}
	}
	return nil
}

func configureLLM(
	cmd *cobra.Command, reader *bufio.Reader, store driven.ConfigStore, provider, model string,
) error {
	p := domain.AIProvider(provider)
	if !p.IsValid() {
		return fmt.Errorf("unsupported chat provider %q (use openai, anthropic, or ollama)", provider)
	}
	if err := store.Set(file.KeyLLMProvider, provider); err != nil {
		return err
	}
	if model != "" {
		if err := store.Set(file.KeyLLMModel, model); err != nil {
			return err
		}
	}
	if p.RequiresAPIKey() {
		key, err := readSecret(cmd, reader, fmt.Sprintf("%s API key (chat)", provider))
		if err != nil {
			return err
		}
		if err := store.Set(file.KeyLLMAPIKey, key); err != nil {
			return err
		}
	}
	return nil
}

// promptLine asks for a value, falling back to the current one on an empty
// reply.
func promptLine(cmd *cobra.Command, reader *bufio.Reader, label, current string) (string, error) {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

// readSecret reads a secret without echoing when stdin is a terminal, and
// falls back to a plain line read otherwise (pipes, tests).
func readSecret(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	cmd.Printf("%s: ", label)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

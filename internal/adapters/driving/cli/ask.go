package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [session-id] [question]",
	Short: "Ask a single question against a session",
	Long: `Asks one question against a previously built session and prints the
answer with its sources. For a longer conversation, use 'repochat chat'.`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	sessionID, question := args[0], args[1]

	answerer, _, cleanup, err := buildAnswerer()
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := answerer.Ask(cmd.Context(), sessionID, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s\n", i+1, formatCitation(c))
		}
	}
	return nil
}

func formatCitation(c domain.Citation) string {
	switch c.Origin {
	case domain.OriginIssue:
		return fmt.Sprintf("Issue #%d (%s)", c.Number, c.URL)
	case domain.OriginPullRequest:
		return fmt.Sprintf("PR #%d (%s)", c.Number, c.URL)
	default:
		return c.Locator
	}
}

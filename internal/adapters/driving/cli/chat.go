package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/repochat/repochat-cli/internal/adapters/driving/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Start an interactive conversation with a session",
	Long: `Opens an interactive terminal conversation against a previously built
session. Each answer lists the sources it was grounded on.

Controls:
  Enter - Submit question
  Esc   - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	// Panic recovery to get stack traces out of the alternate screen.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	answerer, store, cleanup, err := buildAnswerer()
	if err != nil {
		return err
	}
	defer cleanup()

	// Resolve the repo URL up front; this also surfaces missing or
	// unfinished sessions before entering the alternate screen.
	rec, err := store.Load(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	model := chat.NewModel(answerer, sessionID, rec.Session.RepoURL).
		WithContext(cmd.Context())

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repochat/repochat-cli/internal/core/services"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage built sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session and its knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	sessions, err := services.NewSessions(store).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions. Build one with: repochat build <repo-url>")
		return nil
	}

	for _, s := range sessions {
		cmd.Printf("%s  %-8s  %s\n", s.ID, s.Status, s.RepoURL)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if err := services.NewSessions(store).Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	cmd.Printf("Session %s deleted.\n", args[0])
	return nil
}

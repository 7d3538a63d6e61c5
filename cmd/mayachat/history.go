package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mayachat/internal/history"
	"mayachat/internal/transcript"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse locally recorded chat sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a recorded session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum sessions to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.DatabasePath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %d turns\n", s.SessionID, s.LastAt.Format("2006-01-02 15:04"), s.Turns)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	turns, err := store.GetSession(args[0])
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("no session %q", args[0])
	}
	for _, turn := range turns {
		speaker := "Maya"
		if turn.Role == transcript.RoleUser {
			speaker = "You"
		}
		fmt.Printf("[%s] %s: %s\n", turn.CreatedAt.Format("15:04:05"), speaker, turn.Content)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(args[0]); err != nil {
		return err
	}
	fmt.Println("Deleted", args[0])
	return nil
}

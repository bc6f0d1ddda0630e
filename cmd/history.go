package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonyos/webpilot/internal/config"
	"github.com/simonyos/webpilot/internal/store"
	"github.com/simonyos/webpilot/internal/transcript"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded sessions",
	Long: `Browse sessions recorded in the history database.

Examples:
  webpilot history list          # Most recent sessions
  webpilot history show <id>     # Full transcript as YAML
  webpilot history delete <id>   # Remove a session`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer history.Close()

		sessions, err := history.List(cmd.Context(), historyLimitFlag)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			created := time.Unix(s.CreatedAt, 0).Format("Jan 2 15:04")
			fmt.Fprintf(out, "%s  %s  %-6s %-12s %-12s %s\n",
				s.ID, created, s.Backend, s.Model, displayStatus(s.Status), oneLine(s.Prompt, 50))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer history.Close()

		s, err := history.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msgs, err := history.Messages(cmd.Context(), s.ID)
		if err != nil {
			return err
		}
		return transcript.Write(cmd.OutOrStdout(), transcript.Transcript{
			Session:  s.ID,
			Backend:  s.Backend,
			Model:    s.Model,
			Protocol: s.Protocol,
			Status:   s.Status,
			Messages: msgs,
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a recorded session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer history.Close()

		if _, err := history.Get(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := history.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
		return nil
	},
}

func openHistoryStore() (*store.Store, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.HistoryDB)
}

func displayStatus(status string) string {
	if status == "" {
		return "running"
	}
	return status
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of sessions to show (0 for all)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

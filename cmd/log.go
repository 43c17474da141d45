package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

func newLogCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log <branch>",
		Short: "Show how a branch ref moved, newest first",
		Long: `Show the journaled ref transitions of a branch: creation, commits,
amends, merges, publishes and deletion. The journal lives under
reflog.path; without it only this invocation's changes are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			entries, err := m.History(args[0], limit)
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "WHEN", "OP", "OLD", "NEW", "ACTOR")
			for _, e := range entries {
				t.AppendRow([]any{
					e.At.UTC().Format(time.RFC3339),
					string(e.Op),
					shortHash(e.Old),
					shortHash(e.New),
					e.Actor,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries; 0 for all")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/contrib"
)

func newMergeCommand(a *app) *cobra.Command {
	var opts contrib.MergeOptions
	cmd := &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a contribution into the default branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			opts.Author = authorFromEnv(opts.Author)
			res, err := m.Merge(args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s now at %s\n",
				args[0], addedColor.Sprint(res.Outcome), m.DefaultBranch(), shortHash(res.Head.String()))
			return nil
		},
	}
	authorFlag(cmd.Flags(), &opts.Author, `author of a merge commit, "Name <email>" (default: the configured committer)`)
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "merge commit message")
	return cmd
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/submission"
)

func newBranchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, delete and list contribution branches",
	}
	cmd.AddCommand(newBranchCreateCommand(a), newBranchDeleteCommand(a), newBranchListCommand(a))
	return cmd
}

func newBranchCreateCommand(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Start a branch at the default branch head",
		Long: `Start a branch at the current head of the default branch. Without a name
the branch is called <kind>-contribution-<milliseconds>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				k, err := submission.ParseKind(kind)
				if err != nil {
					return err
				}
				name = submission.BranchName(k, time.Now())
			}
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			head, err := m.CreateBranch(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s at %s\n", addedColor.Sprint(name), shortHash(head.String()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(submission.Knowledge), "contribution kind used to name the branch: knowledge or skill")
	return cmd
}

func newBranchDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete abandoned contribution branches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := m.DeleteBranch(name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", deletedColor.Sprint(name))
			}
			return nil
		},
	}
}

func newBranchListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List branches, most recently updated first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			list, err := m.ListBranches()
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "BRANCH", "TITLE", "SIGNED OFF BY", "UPDATED", "HEAD")
			for _, c := range list {
				signoff := dimColor.Sprint("-")
				if c.SignoffAuthor != nil {
					signoff = *c.SignoffAuthor
				}
				t.AppendRow([]any{
					c.Branch,
					c.Title,
					signoff,
					c.Timestamp.UTC().Format(time.RFC3339),
					shortHash(c.Head.String()),
				})
			}
			t.Render()
			return nil
		},
	}
}

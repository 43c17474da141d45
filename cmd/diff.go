package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/git"
)

func newDiffCommand(a *app) *cobra.Command {
	var patch bool
	cmd := &cobra.Command{
		Use:   "diff <branch> | diff <from> <to>",
		Short: "Show the files a branch changed, or the changes between two revisions",
		Long: `With one argument, show what a contribution branch changed since it left
the default branch. With two, compare any two branches or commits; an
empty revision ("") stands for the empty tree.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			var from, to string
			if len(args) == 1 {
				list, err := m.Changes(args[0])
				if err != nil {
					return err
				}
				if !patch {
					return printChanges(cmd, list)
				}
				from, to = m.DefaultBranch(), args[0]
			} else {
				from, to = args[0], args[1]
			}
			if patch {
				text, _, err := m.Preview(from, to)
				if err != nil {
					return err
				}
				return writePatch(cmd.OutOrStdout(), text)
			}
			list, err := m.Diff(from, to)
			if err != nil {
				return err
			}
			return printChanges(cmd, list)
		},
	}
	cmd.Flags().BoolVarP(&patch, "patch", "p", false, "print a unified diff instead of a file list")
	return cmd
}

func printChanges(cmd *cobra.Command, changes []git.FileChange) error {
	out := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(out, dimColor.Sprint("no changes"))
		return nil
	}
	for _, ch := range changes {
		fmt.Fprintf(out, "%s %s\n", statusLetter(ch.Status), ch.Path)
	}
	return nil
}

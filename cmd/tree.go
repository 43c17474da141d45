package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newTreeCommand(a *app) *cobra.Command {
	var (
		dirsOnly bool
		info     bool
		under    string
	)
	cmd := &cobra.Command{
		Use:   "tree [revision]",
		Short: "Print the files of a revision as a tree",
		Long: `Print every file at a revision, the default branch when omitted. With
--dirs PATH only the directories directly under PATH on the default branch
are listed, which is how contributors pick where a submission goes.
With --info the files are listed with the commit that last changed each.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			if dirsOnly {
				var path string
				if len(args) == 1 {
					path = strings.Trim(args[0], "/")
				}
				dirs, err := m.ListDirectories(path)
				if err != nil {
					return err
				}
				for _, d := range dirs {
					fmt.Fprintln(cmd.OutOrStdout(), d)
				}
				return nil
			}
			rev := m.DefaultBranch()
			if len(args) == 1 {
				rev = args[0]
			}
			if info {
				infos, err := m.FileInfo(rev, under)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "PATH", "COMMIT", "WHEN")
				for _, fi := range infos {
					t.AppendRow([]any{fi.Path, shortHash(fi.Commit.String()), fi.When.UTC().Format(time.RFC3339)})
				}
				t.Render()
				return nil
			}
			files, err := m.Files(rev)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pathTree(rev, files).String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dirsOnly, "dirs", "d", false, "list the directories under the given path of the default branch")
	cmd.Flags().BoolVarP(&info, "info", "i", false, "list files with the commit that last changed them")
	cmd.Flags().StringVar(&under, "path", "", "with --info, only list files under this directory")
	return cmd
}

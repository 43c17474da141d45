package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/contrib"
	"github.com/thiagokokada/contribgit/internal/git"
)

func newCommitCommand(a *app) *cobra.Command {
	var (
		author  git.Author
		message string
		amend   bool
		puts    []string
		removes []string
	)
	cmd := &cobra.Command{
		Use:   "commit <branch>",
		Short: "Commit files to a contribution branch",
		Long: `Write files onto a branch as one signed-off commit. Each --put takes
repo/path=local/file; each --remove deletes a repository path. With --amend
the branch's own commit is replaced instead of stacked.`,
		Example: `  contribgit commit knowledge-contribution-1700000000000 \
    --author "Jane Doe <jane@example.com>" -m "Add physics" \
    --put knowledge/science/physics/qna.yaml=./qna.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := requireAuthor(author)
			if err != nil {
				return err
			}
			if message == "" {
				return errors.New("a commit message is required")
			}
			files, err := readPuts(puts)
			if err != nil {
				return err
			}
			if len(files) == 0 && len(removes) == 0 {
				return errors.New("nothing to commit: pass --put or --remove")
			}
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			wt, err := m.Checkout(args[0])
			if err != nil {
				return err
			}
			for _, p := range removes {
				if err := m.RemoveFile(wt, p); err != nil {
					return err
				}
			}
			id, err := m.StageAndCommit(wt, files, signer, message, amend)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], shortHash(id.String()))
			return nil
		},
	}
	fs := cmd.Flags()
	authorFlag(fs, &author, `author signing off the commit, "Name <email>"`)
	fs.StringVarP(&message, "message", "m", "", "commit message")
	fs.BoolVar(&amend, "amend", false, "replace the branch's own commit")
	fs.StringArrayVar(&puts, "put", nil, "write repo/path=local/file (repeatable)")
	fs.StringArrayVar(&removes, "remove", nil, "remove a repository path (repeatable)")
	return cmd
}

func readPuts(puts []string) ([]contrib.File, error) {
	files := make([]contrib.File, 0, len(puts))
	for _, p := range puts {
		path, local, ok := strings.Cut(p, "=")
		if !ok || path == "" || local == "" {
			return nil, fmt.Errorf("--put %q: expected repo/path=local/file", p)
		}
		data, err := os.ReadFile(local)
		if err != nil {
			return nil, err
		}
		files = append(files, contrib.File{Path: path, Content: data})
	}
	return files, nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/submission"
)

func newSubmitCommand(a *app) *cobra.Command {
	var (
		kind, path, qnaFile, branch string
		author                      git.Author
		s                           submission.Submission
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "File a knowledge or skill contribution",
		Long: `Write qna.yaml and attribution.txt under knowledge/<path> or
compositional_skills/<path> and commit them, signed off by --author.

Without --branch a new contribution branch is created. With --branch the
existing contribution is updated; if --path differs from where it was
filed, the old files are removed and the branch keeps a single commit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := requireAuthor(author)
			if err != nil {
				return err
			}
			k, err := submission.ParseKind(kind)
			if err != nil {
				return err
			}
			if qnaFile == "" {
				return errors.New("--qna is required")
			}
			qna, err := os.ReadFile(qnaFile)
			if err != nil {
				return err
			}
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			s.Kind = k
			s.Path = path
			s.QnA = qna
			if branch != "" {
				prev, err := submission.Load(m, branch)
				if err != nil && !errors.Is(err, git.ErrNotFound) {
					return err
				}
				if err == nil {
					if prev.Kind != k {
						return fmt.Errorf("branch %s holds a %s contribution", branch, prev.Kind)
					}
					s.OldPath = prev.Path
				}
			}
			res, err := submission.Submit(m, s, branch, signer, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", addedColor.Sprint(res.Branch), shortHash(res.Commit.String()))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&kind, "kind", "k", string(submission.Knowledge), "knowledge or skill")
	fs.StringVar(&path, "path", "", "taxonomy path, e.g. science/physics")
	fs.StringVar(&qnaFile, "qna", "", "local qna.yaml to submit")
	fs.StringVarP(&branch, "branch", "b", "", "update this contribution branch instead of starting one")
	fs.StringVarP(&s.Summary, "summary", "m", "", "one line summary used as the commit title")
	fs.StringVar(&s.Attribution.TitleOfWork, "title", "", "title of the source work")
	fs.StringVar(&s.Attribution.LinkToWork, "link", "", "link to the source work (knowledge)")
	fs.StringVar(&s.Attribution.Revision, "revision", "", "revision of the source work (knowledge)")
	fs.StringVar(&s.Attribution.LicenseOfTheWork, "license", "", "license of the source work")
	fs.StringVar(&s.Attribution.CreatorNames, "creators", "", "creators of the source work")
	authorFlag(fs, &author, `contributor signing off, "Name <email>"`)
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

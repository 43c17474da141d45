package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/contrib"
	"github.com/thiagokokada/contribgit/internal/mirror"
	"github.com/thiagokokada/contribgit/internal/watch"
)

func newSyncCommand(a *app) *cobra.Command {
	var watchRefs bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone missing repositories and re-clone stale ones",
		Long: `Without --repo every configured repository is synced. With --watch the
command keeps running: it checks the remotes every sync.interval and
refreshes branch listings when refs change on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			names := []string{a.repoName}
			if a.repoName == "" {
				names = names[:0]
				for _, r := range a.cfg.Repositories {
					names = append(names, r.Name)
				}
			}
			if len(names) == 0 {
				return errors.New("no repositories configured")
			}
			var managers []*contrib.Manager
			for _, name := range names {
				m, err := a.manager(ctx, name)
				if err != nil {
					return err
				}
				res := m.Mirror().CheckForUpdates(ctx)
				if res.Action != mirror.ActionNone {
					m.InvalidateListing()
				}
				printSyncResult(cmd.OutOrStdout(), m.Name(), res)
				if res.Err != nil {
					return res.Err
				}
				managers = append(managers, m)
			}
			if !watchRefs && !a.cfg.Sync.Watch {
				return nil
			}
			for _, m := range managers {
				w, err := watch.New(m.Mirror().Path(), watch.DefaultDelay, m.InvalidateListing, a.log)
				if err != nil {
					return err
				}
				defer w.Close()
				m.Mirror().OnSwap(func(path string) {
					if err := w.Reset(path); err != nil {
						a.log.Error("rewatch clone", zap.String("repo", m.Name()), zap.Error(err))
					}
				})
				m.Mirror().Start(ctx)
			}
			a.log.Info("watching repositories", zap.Int("count", len(managers)))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watchRefs, "watch", "w", false, "keep running and poll remotes in the background")
	return cmd
}

func printSyncResult(w io.Writer, name string, res mirror.Result) {
	if res.Err != nil {
		fmt.Fprintf(w, "%s: %s (%s)\n", name, deletedColor.Sprint("failed"), res.State)
		return
	}
	action := string(res.Action)
	if res.Action == mirror.ActionNone {
		action = "up to date"
	}
	fmt.Fprintf(w, "%s: %s at %s\n", name, addedColor.Sprint(action), shortHash(res.Head.String()))
	if len(res.Carried) > 0 {
		fmt.Fprintf(w, "  carried %d branch(es) over\n", len(res.Carried))
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/config"
	"github.com/thiagokokada/contribgit/internal/contrib"
	"github.com/thiagokokada/contribgit/internal/logging"
	"github.com/thiagokokada/contribgit/internal/mirror"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	repoName   string
	logLevel   string
	noColor    bool

	// remote replaces the network transport in tests.
	remote mirror.Remote

	cfg      *config.Config
	log      *zap.Logger
	journal  *reflog.Journal
	managers map[string]*contrib.Manager
}

func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Annotations["skipSetup"] == "true" {
		return nil
	}
	if a.noColor {
		color.NoColor = true
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.managers = map[string]*contrib.Manager{}
	return nil
}

func (a *app) close() error {
	var errs []error
	for _, m := range a.managers {
		m.Mirror().Stop()
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
		a.journal = nil
	}
	if a.log != nil {
		// Syncing stderr fails on some platforms; nothing useful to report.
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

func (a *app) openJournal() (*reflog.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := reflog.Open(a.cfg.Reflog.Path, a.log)
	if err != nil {
		return nil, err
	}
	a.journal = j
	return j, nil
}

// manager returns the synced manager for the repository called name, or
// for --repo when name is empty.
func (a *app) manager(ctx context.Context, name string) (*contrib.Manager, error) {
	if name == "" {
		name = a.repoName
	}
	repo, err := a.cfg.Repository(name)
	if err != nil {
		return nil, err
	}
	if m, ok := a.managers[repo.Name]; ok {
		return m, nil
	}
	mir, err := mirror.New(mirror.Options{
		Name:          repo.Name,
		Path:          repo.Path,
		URL:           repo.URL,
		DefaultBranch: repo.DefaultBranch,
		Interval:      a.cfg.Sync.Interval,
		Remote:        a.remote,
		Logger:        a.log,
	})
	if err != nil {
		return nil, err
	}
	journal, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	m, err := contrib.New(contrib.Options{
		Mirror:    mir,
		Journal:   journal,
		CacheSize: a.cfg.Cache.Size,
		Committer: a.cfg.Committer,
		Logger:    a.log,
	})
	if err != nil {
		return nil, err
	}
	if res := m.EnsureSynced(ctx); res.Err != nil {
		return nil, fmt.Errorf("sync %s: %w", repo.Name, res.Err)
	}
	a.managers[repo.Name] = m
	return m, nil
}

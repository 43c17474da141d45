// Package cmd implements the contribgit command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr, &app{})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, a *app) error {
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	// Commands that fail skip the post-run hooks; the journal must still be closed.
	return errors.Join(err, a.close())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "contribgit",
		Short: "Manage knowledge and skill contributions as git branches",
		Long: `contribgit keeps a local clone of each configured repository and stores
every contribution on its own branch. Branches can be inspected, diffed,
merged into the default branch or published to another repository.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default: ./contribgit.yaml)")
	flags.StringVarP(&a.repoName, "repo", "r", "", "repository to operate on")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSyncCommand(a),
		newBranchCommand(a),
		newCommitCommand(a),
		newDiffCommand(a),
		newMergeCommand(a),
		newTreeCommand(a),
		newArchiveCommand(a),
		newPublishCommand(a),
		newLogCommand(a),
		newSubmitCommand(a),
		newVersionCommand(),
	)
	return root
}

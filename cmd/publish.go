package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCommand(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "publish <branch> --to <repo>",
		Short: "Copy a contribution onto the same branch of another repository",
		Long: `Replay the files a branch changed onto a branch of the same name in the
target repository, started from that repository's default branch. The
commit keeps the original message and the author named in its sign-off.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return errors.New("--to is required")
			}
			src, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			dst, err := a.manager(cmd.Context(), target)
			if err != nil {
				return err
			}
			id, err := src.Publish(args[0], dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s at %s\n", args[0], dst.Name(), shortHash(id.String()))
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "repository to publish to")
	return cmd
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newArchiveCommand(a *app) *cobra.Command {
	var output, prefix string
	cmd := &cobra.Command{
		Use:   "archive <revision>",
		Short: "Export a revision as a .tar.zst archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			m, err := a.manager(cmd.Context(), "")
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { err = errors.Join(err, f.Close()) }()
				w = f
			}
			if prefix == "" {
				prefix = args[0] + "/"
			}
			if err := m.Archive(w, args[0], prefix); err != nil {
				return fmt.Errorf("archive %s: %w", args[0], err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the archive to this file instead of stdout")
	cmd.Flags().StringVar(&prefix, "prefix", "", "path prefix of every entry (default: <revision>/)")
	return cmd
}

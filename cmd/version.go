package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/contribgit/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipSetup": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "contribgit %s\n", buildinfo.String())
			return nil
		},
	}
}

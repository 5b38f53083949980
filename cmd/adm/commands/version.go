package commands

import (
	"fmt"

	"github.com/rshatalov/rpy/internal/version"

	"github.com/spf13/cobra"
)

// VersionCommand prints the build information
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get("adm"))
		},
	}
}

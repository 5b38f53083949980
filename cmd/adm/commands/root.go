package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the adm command tree
func NewRootCommand(rt *Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Study backend administration tool",
		Long: `Study backend administration tool.

Provides commands for schema migrations, question imports, tags and
database maintenance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(DatabaseCommands(rt))
	rootCmd.AddCommand(QuestionCommands(rt))
	rootCmd.AddCommand(TagCommands(rt))
	rootCmd.AddCommand(VersionCommand())

	return rootCmd
}

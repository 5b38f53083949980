package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(rt *Runtime) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate   - Apply pending schema migrations
  stats     - Show schema version and row counts
  reset     - Empty every application table`,
	}

	dbCmd.AddCommand(migrateCmd(rt))
	dbCmd.AddCommand(statsCmd(rt))
	dbCmd.AddCommand(resetCmd(rt))

	return dbCmd
}

func migrateCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := rt.DB()
			if err != nil {
				return err
			}
			if err := rt.DBManager.RunMigrations(ctx, db); err != nil {
				return contextutils.WrapError(err, "failed to apply migrations")
			}
			version, dirty, err := rt.DBManager.MigrationVersion(db)
			if err != nil {
				return contextutils.WrapError(err, "failed to read schema version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func statsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show schema version and row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := rt.Container()
			if err != nil {
				return err
			}
			db := container.GetDatabase()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, getDatabaseInfo(ctx, db))
			if version, dirty, err := rt.DBManager.MigrationVersion(db); err == nil {
				fmt.Fprintf(out, "Schema version: %d (dirty: %t)\n", version, dirty)
			} else {
				rt.Logger.Warn(ctx, "Could not read schema version", map[string]interface{}{"error": err.Error()})
			}

			inspection, err := container.GetInspectionService()
			if err != nil {
				return err
			}
			tables, err := inspection.ListTables(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to count rows")
			}

			fmt.Fprintf(out, "%-20s %10s\n", "Table", "Rows")
			fmt.Fprintln(out, strings.Repeat("-", 31))
			for _, table := range tables {
				fmt.Fprintf(out, "%-20s %10d\n", table.Name, table.RowCount)
			}
			return nil
		},
	}
}

func resetCmd(rt *Runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty every application table",
		Long: `Empty every application table and restart id sequences.

Asks for confirmation on a terminal; pass --yes when running non-interactively.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return contextutils.NewInvalidInputf("refusing to reset without --yes when stdin is not a terminal")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "This deletes all data in %s. Type RESET to continue: ", contextutils.MaskDatabaseURL(rt.Config.Database.URL))
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "RESET" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			db, err := rt.DB()
			if err != nil {
				return err
			}
			if err := rt.DBManager.ResetDatabase(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

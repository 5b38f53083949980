package commands

import (
	"fmt"
	"io"

	"github.com/rshatalov/rpy/internal/importer"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/spf13/cobra"
)

// QuestionCommands returns the question bank commands
func QuestionCommands(rt *Runtime) *cobra.Command {
	questionsCmd := &cobra.Command{
		Use:   "questions",
		Short: "Question bank commands",
	}
	questionsCmd.AddCommand(importCmd(rt))
	return questionsCmd
}

func importCmd(rt *Runtime) *cobra.Command {
	var (
		file   string
		format string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from a text file or a JSON/YAML bundle",
		Long: `Import questions from a file.

Formats:
  text  - "# <Category> <n>" headers followed by blank-line separated blocks;
          the first line of a block is the question, the rest is the answer.
          Categories must name an existing tag.
  json  - bundle with "tags" and "questions"
  yaml  - the same bundle in YAML

The format is taken from the file extension unless --format is given.
With --dry-run everything is validated and counted, then rolled back.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts := importer.Options{DryRun: dryRun}
			if format != "" {
				f, err := importer.ParseFormat(format)
				if err != nil {
					return err
				}
				opts.Format = f
			}

			container, err := rt.Container()
			if err != nil {
				return err
			}
			imp, err := container.GetImporter()
			if err != nil {
				return err
			}

			report, err := imp.ImportFile(ctx, file, opts)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to import %s", file)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File to import")
	cmd.Flags().StringVar(&format, "format", "", "Input format: text, json or yaml")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and count without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printReport(out io.Writer, report *importer.Report) {
	fmt.Fprintf(out, "%-30s %8s %8s %8s  %s\n", "Category", "Found", "Imported", "Skipped", "Reason")
	for _, category := range report.Categories {
		name := category.Name
		if name == "" {
			name = "(untagged)"
		}
		fmt.Fprintf(out, "%-30s %8d %8d %8d  %s\n", name, category.Found, category.Imported, category.Skipped, category.Reason)
	}
	fmt.Fprintf(out, "Total: found %d, imported %d, skipped %d", report.Found, report.Imported, report.Skipped)
	if report.TagsCreated > 0 {
		fmt.Fprintf(out, ", tags created %d", report.TagsCreated)
	}
	if report.DryRun {
		fmt.Fprint(out, " (dry run, nothing written)")
	}
	fmt.Fprintln(out)
}

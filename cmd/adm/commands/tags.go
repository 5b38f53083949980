package commands

import (
	"fmt"

	"github.com/rshatalov/rpy/internal/models"

	"github.com/spf13/cobra"
)

// TagCommands returns the tag management commands
func TagCommands(rt *Runtime) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag management commands",
	}
	tagsCmd.AddCommand(listTagsCmd(rt))
	tagsCmd.AddCommand(createTagCmd(rt))
	return tagsCmd
}

func listTagsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags with their question counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := rt.Container()
			if err != nil {
				return err
			}
			tagService, err := container.GetTagService()
			if err != nil {
				return err
			}
			tags, err := tagService.ListTags(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags")
				return nil
			}
			fmt.Fprintf(out, "%-25s %-30s %9s\n", "Slug", "Title", "Questions")
			for _, tag := range tags {
				fmt.Fprintf(out, "%-25s %-30s %9d\n", tag.Slug, tag.Title, tag.QuestionCount)
			}
			return nil
		},
	}
}

func createTagCmd(rt *Runtime) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create <slug>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := rt.Container()
			if err != nil {
				return err
			}
			tagService, err := container.GetTagService()
			if err != nil {
				return err
			}
			if title == "" {
				title = args[0]
			}
			tag, err := tagService.CreateTag(cmd.Context(), models.TagInput{Slug: args[0], Title: title})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %s (%s)\n", tag.Slug, tag.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Display title (defaults to the slug)")
	return cmd
}

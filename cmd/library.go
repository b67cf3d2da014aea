package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved stories",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Show a saved story's outline, or one chapter's text",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <story-id>",
	Short: "Delete a saved story",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd)

	showCmd.Flags().IntP("chapter", "n", 0, "print the text of this chapter (1-based)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(0)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	stories, err := a.controller.List(ctx)
	if err != nil {
		return err
	}
	if len(stories) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No saved stories.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tGENRE\tCHAPTERS\tUPDATED")
	for _, doc := range stories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
			doc.ID, doc.Title, doc.Genre, doc.GeneratedCount(), len(doc.Chapters),
			doc.LastUpdated.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	number, _ := cmd.Flags().GetInt("chapter")

	ctx, cancel := signalContext(0)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.controller.Open(ctx, args[0])
	if err != nil {
		return err
	}
	doc := session.Document()

	if number == 0 {
		printOutline(cmd.OutOrStdout(), doc)
		return nil
	}
	if number < 1 || number > len(doc.Chapters) {
		return fmt.Errorf("chapter %d does not exist, story has %d chapters", number, len(doc.Chapters))
	}
	ch := doc.Chapters[number-1]
	if !ch.Generated {
		return fmt.Errorf("chapter %d has not been written yet", number)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "## Chương %d: %s\n\n%s\n", ch.Number, ch.Title, ch.Content)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(0)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.controller.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %s\n", args[0])
	return nil
}

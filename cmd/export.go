package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelist/internal/pkg/storagefactory"
	"novelist/internal/service/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <story-id>",
	Short: "Export a story as Markdown (with its cover) to the configured storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(0)
	defer cancel()

	cfg := GetConfig()
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.controller.Open(ctx, args[0])
	if err != nil {
		return err
	}

	s, err := storagefactory.NewStorage(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	res, err := export.NewExporter(s).Export(ctx, session.Document())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Markdown: %s (%d chapters)\n", res.MarkdownURL, res.Chapters)
	if res.CoverURL != "" {
		fmt.Fprintf(out, "Cover:    %s\n", res.CoverURL)
	}
	return nil
}

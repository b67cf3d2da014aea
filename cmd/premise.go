package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	model "novelist/internal/model/story"
)

var premiseCmd = &cobra.Command{
	Use:   "premise",
	Short: "Suggest a story premise for a genre and tags",
	Args:  cobra.NoArgs,
	RunE:  runPremise,
}

func init() {
	rootCmd.AddCommand(premiseCmd)

	flags := premiseCmd.Flags()
	flags.StringP("genre", "g", "", "primary genre, one of: "+strings.Join(model.Genres, ", "))
	flags.StringSliceP("tag", "t", nil, "sub-genre tag (repeatable, at most 4)")
	flags.Duration("timeout", 0, "abort after this duration (0: no timeout)")
	_ = premiseCmd.MarkFlagRequired("genre")
}

func runPremise(cmd *cobra.Command, args []string) error {
	genre, _ := cmd.Flags().GetString("genre")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := signalContext(timeout)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	premise, err := a.controller.SuggestPremise(ctx, genre, tags)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), premise)
	return nil
}

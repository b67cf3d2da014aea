package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	storysvc "novelist/internal/service/story"
)

var writeCmd = &cobra.Command{
	Use:   "write <story-id>",
	Short: "Write (or rewrite) a chapter and stream it to stdout",
	Long: `Write a chapter of a saved story. The chapter text is streamed to stdout
as it is generated and the story is saved when the chapter completes.
Rewriting an already written chapter discards its old text first; if the
new stream fails or is interrupted the saved story is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)

	flags := writeCmd.Flags()
	flags.IntP("chapter", "n", 0, "chapter number to write (1-based)")
	flags.Bool("next", false, "write the first chapter that has not been written yet")
	flags.Int("count", 1, "with --next: number of chapters to write in a row")
	flags.Duration("timeout", 0, "abort after this duration (0: no timeout)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	number, _ := flags.GetInt("chapter")
	next, _ := flags.GetBool("next")
	count, _ := flags.GetInt("count")
	timeout, _ := flags.GetDuration("timeout")

	if next == (number > 0) {
		return errors.New("exactly one of --chapter or --next is required")
	}
	if !next || count < 1 {
		count = 1
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.controller.Open(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i < count; i++ {
		index := number - 1
		if next {
			index = session.NextUngenerated()
			if index < 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "All chapters are written.")
				return nil
			}
		}

		stream, err := session.WriteChapter(ctx, index)
		if err != nil {
			return err
		}
		ch := session.Document().Chapters[index]
		fmt.Fprintf(out, "\n## Chương %d: %s\n\n", ch.Number, ch.Title)

		err = stream.ForEach(func(fragment string) error {
			_, werr := fmt.Fprint(out, fragment)
			return werr
		})
		fmt.Fprintln(out)
		if err != nil {
			if errors.Is(err, storysvc.ErrStreamCancelled) {
				log.Warn().Int("chapter", ch.Number).Msg("chapter interrupted, saved story left unchanged")
			}
			return err
		}

		if err := session.Save(ctx); err != nil {
			return err
		}
	}
	return nil
}

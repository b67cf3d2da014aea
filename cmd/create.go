package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	model "novelist/internal/model/story"
	storysvc "novelist/internal/service/story"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Plan a new story (title, synopsis, outline, cover)",
	Long: `Create a new story from a genre, optional tags and a premise.
The outline is planned by the language model; long stories are back-filled
with placeholder chapters up to the requested chapter count.`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	flags := createCmd.Flags()
	flags.String("title", "", "story title (empty: let the model name it)")
	flags.String("premise", "", "story premise (at most 500 words)")
	flags.String("premise-file", "", "read the premise from a file ('-' for stdin)")
	flags.Bool("suggest-premise", false, "let the model suggest a premise when none is given")
	flags.StringP("genre", "g", "", "primary genre, one of: "+strings.Join(model.Genres, ", "))
	flags.StringSliceP("tag", "t", nil, "sub-genre tag (repeatable, at most 4)")
	flags.String("type", string(model.StoryTypeShort), "story length: short or long")
	flags.Int("chapters", 0, "total chapters (long stories)")
	flags.Int("words", 0, "target words per chapter (long stories, >= 500)")
	flags.Bool("no-save", false, "do not save the new story to the library")
	flags.Duration("timeout", 0, "abort after this duration (0: no timeout)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	premise, _ := flags.GetString("premise")
	premiseFile, _ := flags.GetString("premise-file")
	suggest, _ := flags.GetBool("suggest-premise")
	genre, _ := flags.GetString("genre")
	tags, _ := flags.GetStringSlice("tag")
	storyType, _ := flags.GetString("type")
	chapters, _ := flags.GetInt("chapters")
	words, _ := flags.GetInt("words")
	noSave, _ := flags.GetBool("no-save")
	timeout, _ := flags.GetDuration("timeout")

	if premiseFile != "" {
		text, err := readPremise(premiseFile)
		if err != nil {
			return err
		}
		premise = text
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	a, err := newApp(ctx, GetConfig(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if strings.TrimSpace(premise) == "" && suggest {
		premise, err = a.controller.SuggestPremise(ctx, genre, tags)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Suggested premise:\n%s\n\n", premise)
	}

	storyCfg := model.StoryConfiguration{
		Title:     title,
		Premise:   premise,
		Genre:     genre,
		SubGenres: tags,
		StoryType: model.StoryType(storyType),
	}
	if storyCfg.StoryType == model.StoryTypeLong {
		storyCfg.TotalChapters = chapters
		storyCfg.TargetWordCountPerChapter = words
	}

	session, err := a.controller.CreateStory(ctx, storyCfg)
	if err != nil {
		return err
	}

	if !noSave {
		if err := session.Save(ctx); err != nil {
			return err
		}
	}

	printOutline(cmd.OutOrStdout(), session.Document())
	return nil
}

func readPremise(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read premise: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// printOutline 打印故事概要与章节状态
func printOutline(w io.Writer, doc *model.StoryDocument) {
	fmt.Fprintf(w, "%s\n", doc.Title)
	fmt.Fprintf(w, "ID:      %s\n", doc.ID)
	fmt.Fprintf(w, "Genre:   %s", doc.Genre)
	if len(doc.SubGenres) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(doc.SubGenres, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Cover:   %t\n", len(doc.CoverImage) > 0)
	fmt.Fprintf(w, "Updated: %s\n\n", doc.LastUpdated.Format(time.DateTime))
	if doc.LongDescription != "" {
		fmt.Fprintf(w, "%s\n\n", doc.LongDescription)
	}
	for _, ch := range doc.Chapters {
		mark := " "
		if ch.Generated {
			mark = "x"
		}
		summary := ch.Summary
		if !ch.HasAuthoredSummary {
			summary = "(" + storysvc.PlaceholderSummary + ")"
		}
		fmt.Fprintf(w, "[%s] %3d. %s - %s\n", mark, ch.Number, ch.Title, summary)
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"story-cinema-pipeline/internal/ai"
	"story-cinema-pipeline/internal/config"
	"story-cinema-pipeline/internal/prompt"
	"story-cinema-pipeline/internal/story"
)

var (
	flagIdea      string
	flagVideoID   string
	flagStoryName string
	flagShotCount int
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Generate a story YAML file with a text model",
	RunE:  runStory,
}

func init() {
	storyCmd.Flags().StringVar(&flagIdea, "idea", "", "Story idea (empty lets the model invent one)")
	storyCmd.Flags().StringVar(&flagVideoID, "video-id", "", "Video id the story belongs to (required)")
	storyCmd.Flags().StringVar(&flagStoryName, "name", "story", "Story file name without extension")
	storyCmd.Flags().IntVar(&flagShotCount, "shots", 15, "Number of shots to generate")
	_ = storyCmd.MarkFlagRequired("video-id")
}

func runStory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	format, err := config.FormatFor(flagType)
	if err != nil {
		return err
	}
	channel, err := prompt.LoadChannel(cfg.ChannelsRoot, flagChannel)
	if err != nil {
		return err
	}
	client, err := ai.NewClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	log.Info().Str("channel", channel.Name).Str("idea", flagIdea).
		Int("shots", flagShotCount).Msg("generating story")

	st, raw, err := story.Generate(ctx, client, config.StoryModel, channel.SystemPrompt, story.GenerateParams{
		Idea:         flagIdea,
		VideoType:    flagType,
		AspectRatio:  format.AspectRatio,
		ShotDuration: int(format.ShotDuration),
		ShotCount:    flagShotCount,
	})
	if err != nil {
		return err
	}
	if len(st.Shots) != flagShotCount {
		log.Warn().Int("want", flagShotCount).Int("got", len(st.Shots)).
			Msg("model returned a different shot count")
	}

	path, err := story.Save(raw, cfg.StoriesRoot, flagVideoID, flagStoryName)
	if err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	log.Info().Str("title", st.Title).Str("path", path).Msg("story saved")
	return nil
}

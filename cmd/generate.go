package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"story-cinema-pipeline/internal/ai"
	"story-cinema-pipeline/internal/config"
	"story-cinema-pipeline/internal/media"
	"story-cinema-pipeline/internal/pipeline"
	"story-cinema-pipeline/internal/prompt"
	"story-cinema-pipeline/internal/store"
	"story-cinema-pipeline/internal/story"
)

var (
	flagStory        string
	flagShotDuration int32
	flagStartShot    int
	flagEndShot      int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate video clips for a story with frame-based continuity",
	Long: `Iterates the story's shots in ascending id order. Text-anchored shots are
generated from the prompt plus the channel's reference images; image-anchored
shots continue from a frame extracted near the end of the previous clip.
Clips already on disk are skipped, so re-running a story is safe and cheap.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagStory, "story", "", "Path to the story YAML file (required)")
	generateCmd.Flags().Int32Var(&flagShotDuration, "shot-duration", 0, "Duration per shot in seconds (default: per video type)")
	generateCmd.Flags().IntVar(&flagStartShot, "start-shot", 1, "Shot id to start from")
	generateCmd.Flags().IntVar(&flagEndShot, "end-shot", 0, "Shot id to stop at, inclusive (0 = last shot)")
	_ = generateCmd.MarkFlagRequired("story")
}

func runGenerate(cmd *cobra.Command, args []string) error {
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
	shotDuration := format.ShotDuration
	if flagShotDuration > 0 {
		shotDuration = flagShotDuration
	}

	st, err := story.Load(flagStory)
	if err != nil {
		return err
	}

	// The story path carries its identity: stories/{video_id}/{story_name}.yaml.
	videoID := filepath.Base(filepath.Dir(flagStory))
	storyName := strings.TrimSuffix(filepath.Base(flagStory), filepath.Ext(flagStory))

	channelName := flagChannel
	if st.Channel != "" && !cmd.InheritedFlags().Changed("channel") {
		channelName = st.Channel
	}
	channel, err := prompt.LoadChannel(cfg.ChannelsRoot, channelName)
	if err != nil {
		return err
	}
	refs, err := loadReferenceImages(channel)
	if err != nil {
		return err
	}

	client, err := ai.NewClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	clips := store.New(cfg.OutputRoot, videoID, storyName)
	run := st.Range(flagStartShot, flagEndShot)

	log.Info().
		Str("story", st.Title).
		Str("type", flagType).
		Str("aspect_ratio", format.AspectRatio).
		Int32("shot_duration", shotDuration).
		Int("shots", len(run.Shots)).
		Int("reference_images", len(refs)).
		Str("output", clips.Dir()).
		Msg("generating shots")

	sched := pipeline.NewScheduler(client, frameExtractor{}, clips, channel, refs, pipeline.Options{
		AspectRatio:  format.AspectRatio,
		ShotDuration: shotDuration,
	}, nil, log)

	report, err := sched.Run(ctx, run)
	if err != nil {
		var halt *pipeline.ChainHaltError
		if errors.As(err, &halt) {
			log.Error().Int("shot", halt.ShotID).Int("attempts", halt.Attempts).
				Int("last_completed", report.LastCompleted).
				Msgf("chain halted; resume with --start-shot %d", halt.ShotID)
		}
		return err
	}

	skipped, generated := 0, 0
	for _, r := range report.Shots {
		switch r.Status {
		case pipeline.StatusSkipped:
			skipped++
		case pipeline.StatusGenerated:
			generated++
		}
	}
	log.Info().Int("generated", generated).Int("skipped", skipped).
		Int("last_completed", report.LastCompleted).Msg("done")
	return nil
}

// frameExtractor adapts the media package to the scheduler's interface.
type frameExtractor struct{}

func (frameExtractor) ExtractAnchor(ctx context.Context, videoPath string, offsetSeconds float64) ([]byte, error) {
	return media.ExtractAnchor(ctx, videoPath, offsetSeconds)
}

// loadReferenceImages reads the channel's character reference images.
func loadReferenceImages(ch *prompt.Channel) ([]ai.ReferenceImage, error) {
	var refs []ai.ReferenceImage
	for _, path := range ch.ReferenceImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reference image %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		refs = append(refs, ai.ReferenceImage{
			ID:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Data:     data,
			MIMEType: mimeType,
		})
	}
	return refs, nil
}

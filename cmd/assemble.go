package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"story-cinema-pipeline/internal/media"
	"story-cinema-pipeline/internal/store"
)

var (
	flagClipsDir string
	flagOutput   string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Concatenate a story's raw clips into one video",
	RunE:  runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&flagClipsDir, "clips-dir", "", "Directory of raw clips, e.g. output/{video_id}/raw_clips/{story} (required)")
	assembleCmd.Flags().StringVar(&flagOutput, "output", "", "Output video path (required)")
	_ = assembleCmd.MarkFlagRequired("clips-dir")
	_ = assembleCmd.MarkFlagRequired("output")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger

	clips, err := store.Open(flagClipsDir).List()
	if err != nil {
		return fmt.Errorf("list clips: %w", err)
	}
	if len(clips) == 0 {
		return fmt.Errorf("no clips found in %s", flagClipsDir)
	}

	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
	}

	log.Info().Int("clips", len(clips)).Str("output", flagOutput).Msg("stitching")
	if err := media.Stitch(ctx, paths, flagOutput); err != nil {
		return err
	}
	log.Info().Str("output", flagOutput).Msg("assembled")
	return nil
}

package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "story-cinema",
	Short:         "Sequential Veo shot pipeline with frame-based continuity",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagChannel string
	flagType    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagChannel, "channel", "pup-pop-pup", "Channel configuration to use")
	rootCmd.PersistentFlags().StringVar(&flagType, "type", "normal", "Video type: 'normal' (16:9) or 'short' (9:16)")

	rootCmd.AddCommand(generateCmd, storyCmd, assembleCmd)
}

// logger is the base logger, tagged with a short run id so interleaved runs
// stay distinguishable in shared log sinks.
var logger zerolog.Logger

// Execute is the application entry point.
func Execute() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Str("run", uuid.NewString()[:8]).
		Logger()
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

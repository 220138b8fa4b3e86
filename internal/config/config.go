package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pipeline tuning knobs. These match the service's observed behavior: Veo
// operations take minutes, and quota errors need a much longer pause than
// the steady-state gap between shots.
const (
	VideoModel = "veo-3.1-fast-generate-preview"
	StoryModel = "googleai/gemini-3.1-pro-preview"
	Resolution = "1080p" // "720p" | "1080p" | "4k"

	PollInterval      = 15 * time.Second
	DelayBetweenShots = 5 * time.Second
	MaxRetries        = 3
	RetryBackoff      = 60 * time.Second
	MinValidBytes     = 1 << 20 // anything smaller is treated as a failed generation
	FrameOffset       = 1.0     // seconds from the end of a clip for the continuity frame
)

// Format maps a video type to its aspect ratio and default per-shot duration.
type Format struct {
	AspectRatio  string
	ShotDuration int32
}

var Formats = map[string]Format{
	"normal": {AspectRatio: "16:9", ShotDuration: 8},
	"short":  {AspectRatio: "9:16", ShotDuration: 4},
}

// FormatFor resolves a video type name, erroring on unknown values so a typo
// doesn't silently produce a landscape short.
func FormatFor(videoType string) (Format, error) {
	f, ok := Formats[videoType]
	if !ok {
		return Format{}, fmt.Errorf("unknown video type %q (want \"normal\" or \"short\")", videoType)
	}
	return f, nil
}

// Config holds all the application configuration.
type Config struct {
	GoogleGenAIKey string
	ProjectID      string
	Location       string
	UseVertex      bool

	OutputRoot   string
	StoriesRoot  string
	ChannelsRoot string
}

// Load reads .env and validates required variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if file is missing, e.g., in production)
	_ = godotenv.Load()

	cfg := &Config{
		GoogleGenAIKey: os.Getenv("GOOGLE_GENAI_API_KEY"),
		ProjectID:      os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:       os.Getenv("GOOGLE_CLOUD_LOCATION"),
		UseVertex:      strings.EqualFold(os.Getenv("GOOGLE_GENAI_USE_VERTEXAI"), "true"),
		OutputRoot:     envOr("OUTPUT_DIR", "output"),
		StoriesRoot:    envOr("STORIES_DIR", "stories"),
		ChannelsRoot:   envOr("CHANNELS_DIR", "channels"),
	}

	if cfg.UseVertex {
		if cfg.ProjectID == "" || cfg.Location == "" {
			return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION must be set when GOOGLE_GENAI_USE_VERTEXAI=true")
		}
	} else if cfg.GoogleGenAIKey == "" {
		return nil, fmt.Errorf("GOOGLE_GENAI_API_KEY is missing")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package prompt assembles generation prompts from a channel configuration.
//
// A channel bundles everything that keeps a series visually consistent
// across stories: the character descriptions for establishing shots, the
// continuation preamble for shots that start from a frame of the previous
// clip, a shared style suffix, and the negative prompt.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Channel is the per-series prompt configuration, loaded from
// channels/{name}.yaml.
type Channel struct {
	Name               string   `yaml:"name"`
	SystemPrompt       string   `yaml:"system_prompt"`
	HeroPrefix         string   `yaml:"hero_prefix"`
	ContinuationPrefix string   `yaml:"continuation_prefix"`
	StyleSuffix        string   `yaml:"style_suffix"`
	NegativePrompt     string   `yaml:"negative_prompt"`
	ReferenceImages    []string `yaml:"reference_images,omitempty"`
}

// LoadChannel reads {root}/{name}.yaml.
func LoadChannel(root, name string) (*Channel, error) {
	path := filepath.Join(root, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("channel config %s: %w", path, err)
	}
	var ch Channel
	if err := yaml.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("channel config %s: %w", path, err)
	}
	if ch.Name == "" {
		ch.Name = name
	}
	return &ch, nil
}

// ShotPrompt builds the full generation prompt for one shot. Continuation
// shots swap the hero prefix for the continuation prefix wholesale:
// re-describing the characters makes the video model generate new ones to
// match the text instead of continuing from the visual anchor.
func (c *Channel) ShotPrompt(description string, continuation bool) string {
	prefix := c.HeroPrefix
	if continuation {
		prefix = c.ContinuationPrefix
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, description, c.StyleSuffix} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

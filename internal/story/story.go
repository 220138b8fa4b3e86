// Package story defines the shot sequence consumed by the generation
// pipeline and loads it from the YAML files produced by the story generator.
package story

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Mode selects the generation strategy for a single shot.
type Mode string

const (
	// ModeText is text-to-video with character reference images. Used to
	// establish a new scene or camera angle.
	ModeText Mode = "t2v"
	// ModeImage is image-to-video seeded with the last frame of the previous
	// shot. Used for continuation shots within a scene.
	ModeImage Mode = "i2v"
)

// Shot is one sequential unit of generated video content.
type Shot struct {
	ID                int      `yaml:"id"`
	Mode              Mode     `yaml:"mode,omitempty"`
	Description       string   `yaml:"description"`
	ReferenceImageIDs []string `yaml:"reference_image_ids,omitempty"`
}

// Story is an ordered collection of shots plus channel metadata. The pipeline
// treats it as read-only.
type Story struct {
	Title   string `yaml:"title"`
	Concept string `yaml:"concept,omitempty"`
	Channel string `yaml:"channel,omitempty"`
	Shots   []Shot `yaml:"shots"`
}

// Load reads and parses a story YAML file.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}
	st, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse story %s: %w", path, err)
	}
	return st, nil
}

// Parse decodes a story and normalizes it: shots are sorted by ascending ID,
// a missing mode defaults to t2v for shot 1 and i2v otherwise, and duplicate
// or non-positive IDs are rejected.
func Parse(data []byte) (*Story, error) {
	var st Story
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if len(st.Shots) == 0 {
		return nil, fmt.Errorf("story has no shots")
	}

	sort.Slice(st.Shots, func(i, j int) bool { return st.Shots[i].ID < st.Shots[j].ID })

	seen := make(map[int]bool, len(st.Shots))
	for i := range st.Shots {
		s := &st.Shots[i]
		if s.ID < 1 {
			return nil, fmt.Errorf("shot id %d: ids must be positive integers", s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate shot id %d", s.ID)
		}
		seen[s.ID] = true

		if s.Mode == "" {
			if i == 0 {
				s.Mode = ModeText
			} else {
				s.Mode = ModeImage
			}
		}
		if s.Mode != ModeText && s.Mode != ModeImage {
			return nil, fmt.Errorf("shot %d: unknown mode %q", s.ID, s.Mode)
		}
		if s.Description == "" {
			return nil, fmt.Errorf("shot %d: description is empty", s.ID)
		}
	}
	return &st, nil
}

// Range returns a copy of the story restricted to shots with
// start <= id <= end, inclusive. end == 0 means "through the last shot".
func (st *Story) Range(start, end int) *Story {
	out := *st
	out.Shots = nil
	for _, s := range st.Shots {
		if s.ID < start {
			continue
		}
		if end > 0 && s.ID > end {
			continue
		}
		out.Shots = append(out.Shots, s)
	}
	return &out
}

// Package store persists one video artifact per shot. Presence of a file on
// disk is the pipeline's only resumability signal: an existing clip is never
// regenerated.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

const clipExt = ".mp4"

// Store is a directory of per-shot clips named {shot_id}.mp4. The scheduler
// is the only writer, one shot at a time, so no locking is needed.
type Store struct {
	dir string
}

// Open returns a store over an existing or future clips directory.
func Open(dir string) *Store {
	return &Store{dir: dir}
}

// New roots a store at {outputRoot}/{videoID}/raw_clips/{storyName}.
func New(outputRoot, videoID, storyName string) *Store {
	return Open(filepath.Join(outputRoot, videoID, "raw_clips", storyName))
}

// Dir returns the clips directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns the artifact path for a shot, whether or not it exists.
func (s *Store) PathFor(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+clipExt)
}

// Exists reports whether the shot's artifact is on disk.
func (s *Store) Exists(id int) bool {
	_, err := os.Stat(s.PathFor(id))
	return err == nil
}

// Write persists a shot's clip, creating parent directories as needed.
func (s *Store) Write(id int, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create clips dir: %w", err)
	}
	path := s.PathFor(id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write clip %d: %w", id, err)
	}
	return path, nil
}

// Remove deletes a shot's artifact. Used to clean up undersized clips so a
// later Exists check never reports a false "done".
func (s *Store) Remove(id int) error {
	if err := os.Remove(s.PathFor(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clip is one stored artifact.
type Clip struct {
	ID   int
	Path string
}

// List returns all clips in the store sorted by shot ID. Files whose stem is
// not an integer are ignored.
func (s *Store) List() ([]Clip, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var clips []Clip
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != clipExt {
			continue
		}
		stem := e.Name()[:len(e.Name())-len(clipExt)]
		id, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		clips = append(clips, Clip{ID: id, Path: filepath.Join(s.dir, e.Name())})
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].ID < clips[j].ID })
	return clips, nil
}

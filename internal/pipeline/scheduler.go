// Package pipeline drives the sequential shot chain: it resolves each shot's
// generation mode, feeds the previous clip's final frame forward as the
// visual anchor, applies the retry policy, validates artifacts and persists
// them before advancing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"story-cinema-pipeline/internal/ai"
	"story-cinema-pipeline/internal/config"
	"story-cinema-pipeline/internal/prompt"
	"story-cinema-pipeline/internal/story"
)

// Generator produces one clip per request. Satisfied by *ai.Client.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) ([]byte, error)
}

// AnchorExtractor derives the continuity frame from a finished clip.
type AnchorExtractor interface {
	ExtractAnchor(ctx context.Context, videoPath string, offsetSeconds float64) ([]byte, error)
}

// ArtifactStore persists one clip per shot. Satisfied by *store.Store.
type ArtifactStore interface {
	PathFor(id int) string
	Exists(id int) bool
	Write(id int, data []byte) (string, error)
	Remove(id int) error
}

// SleepFunc suspends until the duration elapses or the context is done. The
// scheduler takes it injected so the backoff schedule is testable without
// real time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// StdSleep is the production SleepFunc.
func StdSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options tune one pipeline run. Zero values fall back to the config
// defaults.
type Options struct {
	AspectRatio       string
	ShotDuration      int32
	MaxRetries        int
	RetryBackoff      time.Duration
	DelayBetweenShots time.Duration
	MinValidBytes     int64
	FrameOffset       float64
}

func (o *Options) fillDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = config.MaxRetries
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = config.RetryBackoff
	}
	if o.DelayBetweenShots == 0 {
		o.DelayBetweenShots = config.DelayBetweenShots
	}
	if o.MinValidBytes == 0 {
		o.MinValidBytes = config.MinValidBytes
	}
	if o.FrameOffset == 0 {
		o.FrameOffset = config.FrameOffset
	}
}

// ShotStatus is a shot's terminal state within one run.
type ShotStatus string

const (
	StatusSkipped   ShotStatus = "skipped"
	StatusGenerated ShotStatus = "generated"
	StatusFailed    ShotStatus = "failed"
)

// ShotResult records what happened to one shot.
type ShotResult struct {
	ID         int
	Status     ShotStatus
	Mode       story.Mode // effective mode after any downgrade
	Downgraded bool
	Attempts   int
	Bytes      int64
}

// Report summarizes a run. LastCompleted is the highest shot id that is
// persisted (generated or already present) when the run ended.
type Report struct {
	Shots         []ShotResult
	LastCompleted int
}

// ChainHaltError is the terminal failure of the whole pipeline: one shot
// exhausted its retries, and later shots may depend on its final frame, so
// continuing would silently break continuity.
type ChainHaltError struct {
	ShotID   int
	Attempts int
	Err      error
}

func (e *ChainHaltError) Error() string {
	return fmt.Sprintf("shot %d failed after %d attempts: %v; resume with --start-shot %d",
		e.ShotID, e.Attempts, e.Err, e.ShotID)
}

func (e *ChainHaltError) Unwrap() error { return e.Err }

// Scheduler is the only component with ordering authority; everything else
// is called synchronously from it.
type Scheduler struct {
	gen       Generator
	extractor AnchorExtractor
	store     ArtifactStore
	channel   *prompt.Channel
	refs      []ai.ReferenceImage
	opts      Options
	sleep     SleepFunc
	log       zerolog.Logger
}

// NewScheduler wires a scheduler. refs are the channel's character reference
// images, attached to text-anchored requests only.
func NewScheduler(gen Generator, extractor AnchorExtractor, st ArtifactStore,
	channel *prompt.Channel, refs []ai.ReferenceImage, opts Options,
	sleep SleepFunc, log zerolog.Logger) *Scheduler {
	opts.fillDefaults()
	if sleep == nil {
		sleep = StdSleep
	}
	return &Scheduler{
		gen:       gen,
		extractor: extractor,
		store:     st,
		channel:   channel,
		refs:      refs,
		opts:      opts,
		sleep:     sleep,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Run processes every shot in ascending id order. Shots whose artifact is
// already on disk are skipped without contacting the generation service, so
// re-running over an unchanged story is idempotent. The first shot to
// exhaust its retries halts the chain.
func (s *Scheduler) Run(ctx context.Context, st *story.Story) (*Report, error) {
	shots := make([]story.Shot, len(st.Shots))
	copy(shots, st.Shots)
	sort.Slice(shots, func(i, j int) bool { return shots[i].ID < shots[j].ID })

	report := &Report{}
	for i, shot := range shots {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if s.store.Exists(shot.ID) {
			s.log.Info().Int("shot", shot.ID).Msg("artifact exists, skipping")
			report.Shots = append(report.Shots, ShotResult{ID: shot.ID, Status: StatusSkipped, Mode: shot.Mode})
			report.LastCompleted = shot.ID
			continue
		}

		req, result := s.resolve(ctx, shot)

		size, attempts, err := s.generateWithRetry(ctx, shot.ID, req)
		result.Attempts = attempts
		if err != nil {
			result.Status = StatusFailed
			report.Shots = append(report.Shots, result)
			return report, err
		}

		result.Status = StatusGenerated
		result.Bytes = size
		report.Shots = append(report.Shots, result)
		report.LastCompleted = shot.ID

		// Steady-state throttle between completed shots, distinct from
		// the reactive retry backoff. Not applied after the last shot.
		if i < len(shots)-1 {
			if err := s.sleep(ctx, s.opts.DelayBetweenShots); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

// resolve decides a shot's effective mode and builds the request. A shot is
// image-anchored only if it is declared as such and the previous shot's
// artifact yields a continuity frame; otherwise it is downgraded to
// text-anchored so the chain can restart from any shot id.
func (s *Scheduler) resolve(ctx context.Context, shot story.Shot) (ai.Request, ShotResult) {
	mode := shot.Mode
	downgraded := false
	var anchor []byte

	if mode == story.ModeImage {
		prevID := shot.ID - 1
		if !s.store.Exists(prevID) {
			s.log.Warn().Int("shot", shot.ID).Int("predecessor", prevID).
				Msg("previous shot not found, falling back to t2v")
			mode = story.ModeText
			downgraded = true
		} else {
			frame, err := s.extractor.ExtractAnchor(ctx, s.store.PathFor(prevID), s.opts.FrameOffset)
			if err != nil {
				s.log.Warn().Int("shot", shot.ID).Err(err).
					Msg("frame extraction failed, falling back to t2v")
				mode = story.ModeText
				downgraded = true
			} else {
				anchor = frame
			}
		}
	}

	req := ai.Request{
		Prompt:          s.channel.ShotPrompt(shot.Description, mode == story.ModeImage),
		AspectRatio:     s.opts.AspectRatio,
		DurationSeconds: s.opts.ShotDuration,
		NegativePrompt:  s.channel.NegativePrompt,
	}
	if mode == story.ModeImage {
		req.AnchorImage = anchor
		req.AnchorMIMEType = "image/jpeg"
	} else {
		req.ReferenceImages = s.selectRefs(shot)
	}

	return req, ShotResult{ID: shot.ID, Mode: mode, Downgraded: downgraded}
}

// selectRefs returns the shot's requested reference images, or all of the
// channel's when the shot names none.
func (s *Scheduler) selectRefs(shot story.Shot) []ai.ReferenceImage {
	if len(shot.ReferenceImageIDs) == 0 {
		return s.refs
	}
	byID := make(map[string]ai.ReferenceImage, len(s.refs))
	for _, r := range s.refs {
		byID[r.ID] = r
	}
	var out []ai.ReferenceImage
	for _, id := range shot.ReferenceImageIDs {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		} else {
			s.log.Warn().Int("shot", shot.ID).Str("ref", id).Msg("unknown reference image id")
		}
	}
	return out
}

// generateWithRetry runs the per-shot attempt loop. A validation failure is
// treated like any other generation error, after deleting the undersized
// artifact so Exists never reports a false positive.
func (s *Scheduler) generateWithRetry(ctx context.Context, shotID int, req ai.Request) (int64, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		data, err := s.gen.Generate(ctx, req)
		if err == nil {
			err = s.persist(shotID, data)
			if err == nil {
				s.log.Info().Int("shot", shotID).Int("attempt", attempt).
					Int64("bytes", int64(len(data))).Msg("shot saved")
				return int64(len(data)), attempt, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, attempt, ctxErr
		}

		lastErr = err
		kind := ai.KindOf(err)
		wait, shouldSleep := backoffFor(kind, attempt, s.opts.MaxRetries, s.opts.RetryBackoff)
		s.log.Warn().Int("shot", shotID).Int("attempt", attempt).
			Int("max_attempts", s.opts.MaxRetries).
			Stringer("kind", kind).Dur("backoff", wait).Err(err).
			Msg("generation attempt failed")
		if shouldSleep {
			if err := s.sleep(ctx, wait); err != nil {
				return 0, attempt, err
			}
		}
	}
	return 0, s.opts.MaxRetries, &ChainHaltError{ShotID: shotID, Attempts: s.opts.MaxRetries, Err: lastErr}
}

// persist writes the clip and enforces the size floor. Undersized clips are
// almost always an empty or truncated stream the service returned without
// raising an error.
func (s *Scheduler) persist(shotID int, data []byte) error {
	path, err := s.store.Write(shotID, data)
	if err != nil {
		return err
	}
	if !validSize(int64(len(data)), s.opts.MinValidBytes) {
		if rmErr := s.store.Remove(shotID); rmErr != nil {
			return errors.Join(
				fmt.Errorf("artifact too small (%d bytes)", len(data)),
				fmt.Errorf("cleanup of %s failed: %w", path, rmErr),
			)
		}
		return fmt.Errorf("artifact too small (%d bytes), likely a failed generation", len(data))
	}
	return nil
}

// validSize is the whole validation heuristic: a clip below the floor is a
// failed generation.
func validSize(n, floor int64) bool {
	return n >= floor
}

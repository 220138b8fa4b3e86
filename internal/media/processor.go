// Package media shells out to ffmpeg/ffprobe for the two video operations
// the pipeline needs: extracting a continuity frame near the end of a clip,
// and concatenating finished clips.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

// ExtractionError reports a failed continuity-frame extraction. The scheduler
// reacts by downgrading the shot to text-anchored generation rather than
// halting the chain.
type ExtractionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract frame from %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract frame from %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ProbeDuration returns a video's total duration in seconds.
func ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, &ExtractionError{Path: videoPath, Reason: "ffprobe failed", Err: err}
	}
	d, err := parseDuration(string(out))
	if err != nil {
		return 0, &ExtractionError{Path: videoPath, Reason: "unparsable duration", Err: err}
	}
	return d, nil
}

func parseDuration(out string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(out), 64)
}

// anchorTimestamp clamps to 0 for clips shorter than the offset: a frame from
// the very start is still a usable anchor, and blocking the chain is worse.
func anchorTimestamp(duration, offset float64) float64 {
	ts := duration - offset
	if ts < 0 {
		return 0
	}
	return ts
}

// ExtractAnchor decodes a single frame offsetSeconds before the end of a
// video and returns it as JPEG bytes. This is a single-frame decode, not a
// re-encode; it runs once per shot in a long chain.
func ExtractAnchor(ctx context.Context, videoPath string, offsetSeconds float64) ([]byte, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, &ExtractionError{Path: videoPath, Reason: "artifact missing", Err: err}
	}

	duration, err := ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	ts := anchorTimestamp(duration, offsetSeconds)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-y",
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExtractionError{Path: videoPath, Reason: strings.TrimSpace(stderr.String()), Err: err}
	}
	frame := stdout.Bytes()
	if len(frame) == 0 {
		return nil, &ExtractionError{Path: videoPath, Reason: "ffmpeg produced no frame"}
	}
	return frame, nil
}

// concatList renders the ffmpeg concat-demuxer list for a set of clips.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	return b.String()
}

// Stitch concatenates clips into one video with stream copy (no re-encode).
func Stitch(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to stitch")
	}

	list, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())
	if _, err := list.WriteString(concatList(clipPaths)); err != nil {
		list.Close()
		return err
	}
	if err := list.Close(); err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, string(out))
	}
	return nil
}

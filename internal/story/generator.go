package story

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// TextGenerator produces free-form text from a system/user prompt pair.
// Satisfied by the ai package's genkit-backed client.
type TextGenerator interface {
	GenerateStoryText(ctx context.Context, model, system, user string) (string, error)
}

// GenerateParams describe the story the model should write.
type GenerateParams struct {
	Idea         string
	VideoType    string // "normal" | "short", for the format line only
	AspectRatio  string
	ShotDuration int
	ShotCount    int
}

// BuildUserPrompt renders the user prompt for story generation. The model
// must return a fenced YAML block; everything else in the response is
// ignored.
func BuildUserPrompt(p GenerateParams) string {
	ideaLine := "Generate an original story idea. Be creative and engaging."
	if p.Idea != "" {
		ideaLine = "Story idea: " + p.Idea
	}
	total := p.ShotDuration * p.ShotCount

	var b strings.Builder
	fmt.Fprintf(&b, "Format: %s video (%s, %ds per shot, %d shots total, %ds total).\n",
		p.VideoType, p.AspectRatio, p.ShotDuration, p.ShotCount, total)
	b.WriteString(ideaLine + "\n\n")
	fmt.Fprintf(&b, "Output ONLY a YAML block (fenced with ```yaml ... ```) with these fields:\n")
	b.WriteString("- title: string\n")
	b.WriteString("- concept: one-paragraph summary of the story\n")
	fmt.Fprintf(&b, "- shots: a list of exactly %d items, each with:\n", p.ShotCount)
	fmt.Fprintf(&b, "    - id: integer 1-%d\n", p.ShotCount)
	b.WriteString(`    - mode: either "t2v" or "i2v".
      - "t2v" = text-to-video with character reference images. Use for the FIRST shot of each scene/angle.
      - "i2v" = image-to-video, continuing from the last frame of the previous shot. Use for continuation shots within a scene.
      - Shot 1 MUST be "t2v".
      - Start a new "t2v" scene every 2-3 shots.
      - Do NOT use "i2v" for more than 2 consecutive shots (drift risk).
    - description: (use YAML literal block style "|") a self-contained visual scene description suitable as an AI video generation prompt.
      - t2v shots fully describe the setting, lighting, props and every character, as if the video model sees them for the first time.
      - i2v shots open with a brief continuity line referencing what each character was doing at the end of the previous shot, and do NOT re-describe physical appearance.
      - No dialogue, text overlays, or narration.
`)
	fmt.Fprintf(&b, "\nMake sure the %d shots tell a coherent story arc with a beginning, middle, and satisfying end.\n", p.ShotCount)
	return b.String()
}

var yamlBlockRe = regexp.MustCompile("(?s)```ya?ml\\s*\n(.*?)```")

// ExtractYAMLBlock pulls the first fenced YAML block out of a model response.
func ExtractYAMLBlock(text string) ([]byte, error) {
	m := yamlBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("no fenced yaml block in model response")
	}
	return []byte(m[1]), nil
}

// Generate asks the text model for a story and returns both the parsed story
// and the raw YAML, so callers can persist exactly what the model produced.
func Generate(ctx context.Context, gen TextGenerator, model, system string, p GenerateParams) (*Story, []byte, error) {
	text, err := gen.GenerateStoryText(ctx, model, system, BuildUserPrompt(p))
	if err != nil {
		return nil, nil, fmt.Errorf("story generation: %w", err)
	}
	raw, err := ExtractYAMLBlock(text)
	if err != nil {
		return nil, nil, err
	}
	st, err := Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("model returned invalid story: %w", err)
	}
	return st, raw, nil
}

// Save writes the raw story YAML to {root}/{videoID}/{name}.yaml.
func Save(raw []byte, root, videoID, name string) (string, error) {
	dir := filepath.Join(root, videoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", err
	}
	return path, nil
}

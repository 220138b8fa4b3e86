package story

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeTextGen struct {
	response  string
	gotSystem string
	gotUser   string
}

func (f *fakeTextGen) GenerateStoryText(ctx context.Context, model, system, user string) (string, error) {
	f.gotSystem = system
	f.gotUser = user
	return f.response, nil
}

func TestGenerateParsesModelResponse(t *testing.T) {
	gen := &fakeTextGen{response: "Sure!\n```yaml\ntitle: Garden Day\nshots:\n  - id: 1\n    mode: t2v\n    description: a garden\n```\n"}

	st, raw, err := Generate(context.Background(), gen, "model-x", "be a director", GenerateParams{
		VideoType: "normal", ShotDuration: 8, ShotCount: 1,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.Title != "Garden Day" || len(st.Shots) != 1 {
		t.Errorf("story = %+v", st)
	}
	if !strings.Contains(string(raw), "Garden Day") {
		t.Errorf("raw yaml = %q", raw)
	}
	if gen.gotSystem != "be a director" {
		t.Errorf("system prompt = %q", gen.gotSystem)
	}
	if !strings.Contains(gen.gotUser, "1 shots total") {
		t.Errorf("user prompt = %q", gen.gotUser)
	}
}

func TestGenerateRejectsInvalidStory(t *testing.T) {
	gen := &fakeTextGen{response: "```yaml\ntitle: broken\nshots: []\n```"}
	if _, _, err := Generate(context.Background(), gen, "m", "s", GenerateParams{ShotCount: 1}); err == nil {
		t.Error("expected error for story with no shots")
	}
}

func TestSaveWritesUnderVideoID(t *testing.T) {
	root := t.TempDir()
	path, err := Save([]byte("title: x\n"), root, "vid7", "story")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(root, "vid7", "story.yaml")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "title: x\n" {
		t.Errorf("content = %q, %v", data, err)
	}
}

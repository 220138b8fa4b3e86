package story

import (
	"strings"
	"testing"
)

const sampleYAML = `
title: The Lemonade Stand
concept: The dogs run a lemonade stand.
channel: pup-pop-pup
shots:
  - id: 3
    mode: i2v
    description: |
      Continuing from the previous frame, the puppies pour lemonade.
  - id: 1
    mode: t2v
    description: |
      A sunny suburban driveway with a wooden lemonade stand.
  - id: 2
    description: |
      The adult dog squeezes lemons.
`

func TestParseSortsAndDefaultsModes(t *testing.T) {
	st, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if st.Title != "The Lemonade Stand" {
		t.Errorf("title = %q", st.Title)
	}
	ids := []int{st.Shots[0].ID, st.Shots[1].ID, st.Shots[2].ID}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("ids = %v, want ascending 1 2 3", ids)
	}
	// Shot 2 declared no mode: anything after the first defaults to i2v.
	if st.Shots[1].Mode != ModeImage {
		t.Errorf("shot 2 mode = %q, want i2v default", st.Shots[1].Mode)
	}
}

func TestParseDefaultsFirstShotToText(t *testing.T) {
	st, err := Parse([]byte("shots:\n  - id: 1\n    description: open\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if st.Shots[0].Mode != ModeText {
		t.Errorf("first shot mode = %q, want t2v default", st.Shots[0].Mode)
	}
}

func TestParseRejectsBadStories(t *testing.T) {
	cases := map[string]string{
		"no shots":     "title: x\n",
		"duplicate id": "shots:\n  - {id: 1, description: a}\n  - {id: 1, description: b}\n",
		"zero id":      "shots:\n  - {id: 0, description: a}\n",
		"bad mode":     "shots:\n  - {id: 1, mode: v2v, description: a}\n",
		"no desc":      "shots:\n  - {id: 1, mode: t2v}\n",
	}
	for name, input := range cases {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("%s: Parse accepted invalid story", name)
		}
	}
}

func TestRange(t *testing.T) {
	st, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	mid := st.Range(2, 2)
	if len(mid.Shots) != 1 || mid.Shots[0].ID != 2 {
		t.Errorf("Range(2,2) = %v", mid.Shots)
	}
	tail := st.Range(2, 0)
	if len(tail.Shots) != 2 || tail.Shots[0].ID != 2 || tail.Shots[1].ID != 3 {
		t.Errorf("Range(2,0) = %v", tail.Shots)
	}
	if len(st.Shots) != 3 {
		t.Error("Range mutated the original story")
	}
}

func TestExtractYAMLBlock(t *testing.T) {
	text := "Here is your story:\n```yaml\ntitle: x\nshots:\n  - id: 1\n    description: a\n```\nEnjoy!"
	raw, err := ExtractYAMLBlock(text)
	if err != nil {
		t.Fatalf("ExtractYAMLBlock: %v", err)
	}
	if _, err := Parse(raw); err != nil {
		t.Fatalf("extracted block does not parse: %v", err)
	}

	if _, err := ExtractYAMLBlock("no fences here"); err == nil {
		t.Error("expected error for response without a yaml block")
	}
}

func TestBuildUserPromptMentionsFormat(t *testing.T) {
	p := BuildUserPrompt(GenerateParams{
		Idea:         "camping trip",
		VideoType:    "short",
		AspectRatio:  "9:16",
		ShotDuration: 4,
		ShotCount:    15,
	})
	for _, want := range []string{"Story idea: camping trip", "15 shots total", "4s per shot", "t2v", "i2v"} {
		if !strings.Contains(p, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

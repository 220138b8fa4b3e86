package media

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"8.021333\n", 8.021333, false},
		{"  12.5  ", 12.5, false},
		{"0", 0, false},
		{"N/A\n", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := parseDuration(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseDuration(%q): expected error", c.in)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("parseDuration(%q) = %v, %v; want %v", c.in, got, err, c.want)
		}
	}
}

func TestAnchorTimestampClampsToStart(t *testing.T) {
	cases := []struct {
		duration, offset, want float64
	}{
		{8.0, 1.0, 7.0},
		{1.0, 1.0, 0},
		{0.5, 1.0, 0}, // clip shorter than the offset: use the first frame
		{0, 1.0, 0},
	}
	for _, c := range cases {
		if got := anchorTimestamp(c.duration, c.offset); got != c.want {
			t.Errorf("anchorTimestamp(%v, %v) = %v, want %v", c.duration, c.offset, got, c.want)
		}
	}
}

func TestExtractAnchorMissingFile(t *testing.T) {
	_, err := ExtractAnchor(context.Background(), "/nonexistent/clip.mp4", 1.0)
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("err = %v, want *ExtractionError", err)
	}
	if exErr.Path != "/nonexistent/clip.mp4" {
		t.Errorf("path = %q", exErr.Path)
	}
}

func TestConcatList(t *testing.T) {
	got := concatList([]string{"/clips/1.mp4", "/clips/2.mp4"})
	want := "file '/clips/1.mp4'\nfile '/clips/2.mp4'\n"
	if got != want {
		t.Errorf("concatList = %q, want %q", got, want)
	}
}

func TestStitchRejectsEmptyInput(t *testing.T) {
	err := Stitch(context.Background(), nil, "out.mp4")
	if err == nil || !strings.Contains(err.Error(), "no clips") {
		t.Errorf("err = %v, want no-clips error", err)
	}
}

package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erseco/transcriber/internal/output"
)

func TestWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello   world", 2},
		{"  leading\ttab\n", 2},
		{" ¿qué tal? bien ", 3},
		{"one", 1},
	}
	for _, tc := range cases {
		if got := WordCount(tc.in); got != tc.want {
			t.Fatalf("WordCount(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "0 minutes and 0.00 seconds",
		12*time.Second + 250*time.Millisecond: "0 minutes and 12.25 seconds",
		2*time.Minute + 5*time.Second:         "2 minutes and 5.00 seconds",
	}
	for in, want := range cases {
		if got := formatElapsed(in); got != want {
			t.Fatalf("formatElapsed(%s): expected %q, got %q", in, want, got)
		}
	}
}

func TestSummaryPrint(t *testing.T) {
	var buf bytes.Buffer
	Summary{
		OutputPath: "speech.json",
		Elapsed:    90 * time.Second,
		Model:      "medium",
		Language:   "es",
		Format:     output.Record,
		Words:      42,
	}.Print(&buf)

	want := "Transcription saved to speech.json\n" +
		"Transcription completed in 1 minutes and 30.00 seconds\n" +
		"Model used: medium\n" +
		"Language: es\n" +
		"Output format: json\n" +
		"Number of words: 42\n"
	if buf.String() != want {
		t.Fatalf("unexpected report\n%s", buf.String())
	}
}

func TestArtifactsRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tmp.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var a Artifacts
	a.Track(path)
	a.Track(filepath.Join(dir, "never-created.wav"))
	if err := a.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected tracked file removed")
	}
	if err := a.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/erseco/transcriber/internal/output"
)

// Summary describes a finished run. It is only printed, never stored.
type Summary struct {
	OutputPath string
	Elapsed    time.Duration
	Model      string
	Language   string
	Format     output.Format
	Words      int
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Transcription saved to %s\n", s.OutputPath)
	fmt.Fprintf(w, "Transcription completed in %s\n", formatElapsed(s.Elapsed))
	fmt.Fprintf(w, "Model used: %s\n", s.Model)
	fmt.Fprintf(w, "Language: %s\n", s.Language)
	fmt.Fprintf(w, "Output format: %s\n", s.Format)
	fmt.Fprintf(w, "Number of words: %d\n", s.Words)
}

func formatElapsed(d time.Duration) string {
	secs := d.Seconds()
	minutes := int(secs / 60)
	return fmt.Sprintf("%d minutes and %.2f seconds", minutes, secs-float64(minutes)*60)
}

// Package output writes a transcription result to disk as plain text,
// SubRip subtitles or an indented JSON record.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/erseco/transcriber/internal/whisper"
)

// Format selects the on-disk representation. Its value doubles as the
// file extension.
type Format string

const (
	Text     Format = "txt"
	Subtitle Format = "srt"
	Record   Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, Subtitle, Record:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (choose from txt, srt, json)", s)
	}
}

// BasePath strips the final extension from the input path.
func BasePath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// Render writes result in format to base plus the format's extension and
// returns the path written. An existing file is replaced.
func Render(result whisper.Result, format Format, base string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case Text:
		data = []byte(result.Text)
	case Subtitle:
		data = SRT(result.Segments)
	case Record:
		data, err = JSON(result)
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return "", err
	}

	path := base + "." + string(format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// SRT renders one block per segment, in the given order: the segment id,
// the time range, the text and a blank line.
func SRT(segments []whisper.Segment) []byte {
	var b bytes.Buffer
	for _, seg := range segments {
		fmt.Fprintf(&b, "%d\n", seg.ID)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTime(seg.Start), FormatTime(seg.End))
		fmt.Fprintf(&b, "%s\n\n", seg.Text)
	}
	return b.Bytes()
}

// FormatTime renders seconds as HH:MM:SS,mmm. Milliseconds are truncated,
// and hours keep counting past 24.
func FormatTime(seconds float64) string {
	whole := math.Floor(seconds)
	ms := int64((seconds - whole) * 1000)
	total := int64(whole)
	h := total / 3600
	m := total / 60 % 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// JSON encodes result with four-space indentation and without escaping
// non-ASCII or HTML characters.
func JSON(result whisper.Result) ([]byte, error) {
	if result.Segments == nil {
		result.Segments = []whisper.Segment{}
	}
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b.Bytes(), nil
}

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/erseco/transcriber/internal/config"
	"github.com/erseco/transcriber/internal/logging"
)

var (
	ErrModelLoad     = errors.New("failed to load transcription model")
	ErrTranscription = errors.New("failed to transcribe audio")
)

// Segment is a timed span of recognized speech. Times are in seconds.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the output of one recognition run. Segments are kept in the
// order the engine emitted them.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

type Options struct {
	// Model is a tier name (tiny, base, small, medium, large) or a
	// backend-specific model identifier.
	Model string
	// Language is a hint; an unknown code is not an error.
	Language string
	// Verbose writes each segment to Progress as it is recognized.
	Verbose  bool
	Progress io.Writer
}

// Engine is a small interface for whole-file transcription.
// Implementations block until recognition finishes or ctx is cancelled.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error)
	Name() string
}

// New selects the backend named in cfg.
func New(cfg config.EngineConfig, filter logging.Filter) (Engine, error) {
	switch cfg.Backend {
	case "exec", "":
		return NewExecEngine(cfg.Command, filter)
	case "whispercpp":
		return NewCPPEngine(cfg.ModelsDir, cfg.Threads)
	case "openai":
		return NewOpenAIEngine(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown engine backend %q (supported: exec, whispercpp, openai)", cfg.Backend)
	}
}

var tiers = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large": true,
	"large-v1": true, "large-v2": true, "large-v3": true, "large-v3-turbo": true, "turbo": true,
}

// IsTier reports whether model names a generic size tier, with or without
// the English-only ".en" suffix.
func IsTier(model string) bool {
	return tiers[strings.TrimSuffix(strings.ToLower(model), ".en")]
}

// ModelFile resolves a tier name to a ggml model file in dir. Anything that
// already looks like a model file path is returned unchanged.
func ModelFile(dir, model string) string {
	if strings.HasSuffix(model, ".bin") || strings.ContainsRune(model, filepath.Separator) {
		return model
	}
	return filepath.Join(dir, "ggml-"+model+".bin")
}

func writeProgress(w io.Writer, seg Segment) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[%s --> %s] %s\n", clock(seg.Start), clock(seg.End), strings.TrimSpace(seg.Text))
}

// clock formats seconds as MM:SS.mmm, growing an hour field when needed.
func clock(sec float64) string {
	ms := int64(sec * 1000)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms%1000)
}

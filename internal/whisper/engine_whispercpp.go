//go:build whisper_cpp

package whisper

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/erseco/transcriber/internal/audio"
)

// EngineCPP runs whisper.cpp in process. The model file is loaded per call
// because the tier is chosen per run.
type EngineCPP struct {
	modelsDir string
	threads   uint
}

func NewCPPEngine(modelsDir string, threads int) (Engine, error) {
	n := uint(runtime.NumCPU())
	if threads > 0 {
		n = uint(threads)
		log.Info().Int("threads", threads).Msg("whisper: using configured thread count")
	} else {
		log.Debug().Uint("threads", n).Msg("whisper: using default thread count (CPU cores)")
	}
	return &EngineCPP{modelsDir: modelsDir, threads: n}, nil
}

func (e *EngineCPP) Name() string { return "whispercpp" }

func (e *EngineCPP) Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error) {
	modelPath := ModelFile(e.modelsDir, opts.Model)
	model, err := whisperpkg.New(modelPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrModelLoad, modelPath, err)
	}
	defer model.Close()
	log.Info().Str("model", modelPath).Msg("whisper: model loaded successfully")

	samples, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	wctx, err := model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("%w: create context: %w", ErrTranscription, err)
	}
	wctx.SetThreads(e.threads)
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		log.Warn().Err(err).Str("language", lang).Msg("whisper: language not supported, falling back to auto-detection")
		_ = wctx.SetLanguage("auto")
	}

	// Returning false from the encoder callback makes whisper.cpp abort.
	encoderBegin := func() bool { return ctx.Err() == nil }
	var segCB whisperpkg.SegmentCallback
	if opts.Verbose {
		segCB = func(seg whisperpkg.Segment) {
			writeProgress(opts.Progress, Segment{ID: seg.Num, Start: seg.Start.Seconds(), End: seg.End.Seconds(), Text: seg.Text})
		}
	}

	if err := wctx.Process(samples, encoderBegin, segCB, nil); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		return Result{}, fmt.Errorf("%w: process audio: %w", ErrTranscription, err)
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	var (
		result Result
		text   strings.Builder
	)
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Result{}, fmt.Errorf("%w: read segment: %w", ErrTranscription, err)
		}
		text.WriteString(seg.Text)
		result.Segments = append(result.Segments, Segment{
			ID:    seg.Num,
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}
	result.Text = text.String()

	result.Language = wctx.Language()
	if result.Language == "" || result.Language == "auto" {
		result.Language = wctx.DetectedLanguage()
	}

	log.Debug().
		Str("lang", result.Language).
		Int("segments", len(result.Segments)).
		Int("samples", len(samples)).
		Msg("whisper: transcription complete")
	return result, nil
}

// Package pipeline runs one file through normalization, transcription and
// output rendering, then reports what it did.
//
// A run moves through Start, Normalized, Transcribed, Rendered, CleanedUp
// and Reported, or stops early with an error. Files created during the run
// are removed on every exit path, interruption included.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erseco/transcriber/internal/media"
	"github.com/erseco/transcriber/internal/output"
	"github.com/erseco/transcriber/internal/whisper"
)

var (
	ErrInterrupted   = errors.New("transcription interrupted by user")
	ErrSourceMissing = errors.New("input file does not exist")
)

// Normalizer produces the WAV form of an input file.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (media.Normalized, error)
}

type Request struct {
	Input    string
	Model    string
	Language string
	Format   output.Format
	Verbose  bool
}

type Runner struct {
	Normalizer Normalizer
	Engine     whisper.Engine
	// Stdout receives the user-facing report and verbose segment output.
	Stdout io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

var tracer = otel.Tracer("github.com/erseco/transcriber/internal/pipeline")

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

// Run executes the pipeline for req. The returned error wraps one of
// media.ErrUnsupportedFormat, ErrSourceMissing, media.ErrConversion,
// whisper.ErrModelLoad, whisper.ErrTranscription or ErrInterrupted, or
// reports a failure to write the output file.
func (r *Runner) Run(ctx context.Context, req Request) (sum Summary, err error) {
	ctx, span := tracer.Start(ctx, "transcribe_file", trace.WithAttributes(
		attribute.String("input", req.Input),
		attribute.String("model", req.Model),
		attribute.String("language", req.Language),
		attribute.String("format", string(req.Format)),
	))
	defer func() { endSpan(span, err) }()

	out := r.stdout()
	if _, err := media.ContainerOf(req.Input); err != nil {
		return Summary{}, err
	}
	if _, err := os.Stat(req.Input); err != nil {
		return Summary{}, fmt.Errorf("%w: %s", ErrSourceMissing, req.Input)
	}

	var artifacts Artifacts
	defer func() {
		if rerr := artifacts.Release(); rerr != nil {
			log.Warn().Err(rerr).Msg("pipeline: cleanup failed")
		}
	}()

	norm, err := r.normalize(ctx, req.Input)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nTranscription interrupted by user.")
			return Summary{}, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		return Summary{}, err
	}
	if norm.Temporary() {
		artifacts.Track(norm.Path)
	}

	fmt.Fprintln(out, "Starting transcription...")
	start := r.now()
	result, err := r.transcribe(ctx, norm.Path, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "\nTranscription interrupted by user.")
			return Summary{}, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		fmt.Fprintf(out, "Failed to transcribe audio: %v\n", err)
		return Summary{}, err
	}
	end := r.now()

	path, err := r.render(ctx, result, req)
	if err != nil {
		return Summary{}, err
	}

	_, cleanupSpan := tracer.Start(ctx, "cleanup")
	if err := artifacts.Release(); err != nil {
		log.Warn().Err(err).Msg("pipeline: cleanup failed")
	}
	cleanupSpan.End()

	sum = Summary{
		OutputPath: path,
		Elapsed:    end.Sub(start),
		Model:      req.Model,
		Language:   req.Language,
		Format:     req.Format,
		Words:      WordCount(result.Text),
	}
	sum.Print(out)
	return sum, nil
}

func (r *Runner) normalize(ctx context.Context, input string) (norm media.Normalized, err error) {
	ctx, span := tracer.Start(ctx, "normalize")
	defer func() { endSpan(span, err) }()

	norm, err = r.Normalizer.Normalize(ctx, input)
	if err != nil {
		return media.Normalized{}, err
	}
	span.SetAttributes(attribute.String("wav", norm.Path), attribute.Bool("converted", norm.Temporary()))
	log.Info().Str("input", input).Str("wav", norm.Path).Bool("converted", norm.Temporary()).Msg("pipeline: audio normalized")
	return norm, nil
}

func (r *Runner) transcribe(ctx context.Context, wavPath string, req Request) (res whisper.Result, err error) {
	ctx, span := tracer.Start(ctx, "transcribe", trace.WithAttributes(attribute.String("engine", r.Engine.Name())))
	defer func() { endSpan(span, err) }()

	log.Info().Str("engine", r.Engine.Name()).Str("model", req.Model).Str("language", req.Language).Msg("pipeline: transcription started")
	res, err = r.Engine.Transcribe(ctx, wavPath, whisper.Options{
		Model:    req.Model,
		Language: req.Language,
		Verbose:  req.Verbose,
		Progress: r.stdout(),
	})
	if err != nil {
		return whisper.Result{}, err
	}
	span.SetAttributes(attribute.Int("segments", len(res.Segments)))
	log.Info().Int("segments", len(res.Segments)).Str("detected_language", res.Language).Msg("pipeline: transcription finished")
	return res, nil
}

func (r *Runner) render(ctx context.Context, res whisper.Result, req Request) (path string, err error) {
	_, span := tracer.Start(ctx, "render", trace.WithAttributes(attribute.String("format", string(req.Format))))
	defer func() { endSpan(span, err) }()

	path, err = output.Render(res, req.Format, output.BasePath(req.Input))
	if err != nil {
		return "", err
	}
	log.Info().Str("output", path).Msg("pipeline: output written")
	return path, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

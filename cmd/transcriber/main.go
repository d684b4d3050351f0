package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/erseco/transcriber/internal/config"
	"github.com/erseco/transcriber/internal/logging"
	"github.com/erseco/transcriber/internal/media"
	"github.com/erseco/transcriber/internal/output"
	"github.com/erseco/transcriber/internal/pipeline"
	"github.com/erseco/transcriber/internal/telemetry"
	"github.com/erseco/transcriber/internal/whisper"
)

var version = "0.1.0-dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage error")

type options struct {
	input       string
	language    string
	model       string
	format      string
	verbose     bool
	configPath  string
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPathFromArgs(args))
	if err != nil {
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		return exitUsage
	}

	opts, err := parseArgs(args, cfg, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		return exitUsage
	}
	if _, err := media.ContainerOf(opts.input); err != nil {
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		return exitUsage
	}

	runID := uuid.NewString()
	logging.Setup(cfg.LogLevel, runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, "transcriber", runID)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise telemetry")
		return exitFailure
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	decoder, err := media.NewFFmpegDecoder(cfg.Decoder.Command, cfg.Decoder.SampleRate, cfg.Decoder.Channels)
	if err != nil {
		log.Error().Err(err).Msg("failed to configure decoder")
		return exitFailure
	}
	engine, err := whisper.New(cfg.Engine, logging.NewFilter(cfg.Engine.SuppressWarnings))
	if err != nil {
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		return exitFailure
	}

	log.Info().
		Str("input", opts.input).
		Str("engine", engine.Name()).
		Str("model", opts.model).
		Str("language", opts.language).
		Str("format", string(format)).
		Msg("transcriber starting")

	runner := &pipeline.Runner{
		Normalizer: media.NewNormalizer(decoder),
		Engine:     engine,
		Stdout:     stdout,
	}
	_, err = runner.Run(ctx, pipeline.Request{
		Input:    opts.input,
		Model:    opts.model,
		Language: opts.language,
		Format:   format,
		Verbose:  opts.verbose,
	})
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrInterrupted):
		log.Warn().Msg("transcription interrupted")
		return exitOK
	case errors.Is(err, media.ErrUnsupportedFormat), errors.Is(err, pipeline.ErrSourceMissing):
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		return exitUsage
	case errors.Is(err, whisper.ErrTranscription), errors.Is(err, whisper.ErrModelLoad):
		// The runner already reported these on stdout.
		log.Error().Err(err).Msg("transcription failed")
		return exitFailure
	default:
		fmt.Fprintf(stderr, "transcriber: %v\n", err)
		log.Error().Err(err).Msg("run failed")
		return exitFailure
	}
}

// parseArgs accepts flags before and after the input file.
func parseArgs(args []string, cfg config.Config, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("transcriber", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.language, "language", cfg.Language, "Language hint passed to the transcription engine")
	fs.StringVar(&opts.model, "model", cfg.Model, "Model tier (tiny, base, small, medium, large)")
	fs.StringVar(&opts.format, "output_format", cfg.OutputFormat, "Output format: txt, srt or json")
	fs.BoolVar(&opts.verbose, "verbose", false, "Print segments as they are recognized")
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: transcriber [flags] input_file")
		fs.PrintDefaults()
	}

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return opts, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if opts.showVersion {
		return opts, nil
	}
	switch len(positional) {
	case 1:
		opts.input = positional[0]
	case 0:
		fmt.Fprintln(fs.Output(), "transcriber: missing input_file")
		fs.Usage()
		return opts, errUsage
	default:
		fmt.Fprintf(fs.Output(), "transcriber: expected one input_file, got %d: %s\n", len(positional), strings.Join(positional, " "))
		fs.Usage()
		return opts, errUsage
	}
	return opts, nil
}

// configPathFromArgs finds --config ahead of full parsing, since the config
// file supplies the flag defaults.
func configPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if len(arg)-len(name) < 1 || len(arg)-len(name) > 2 {
			continue
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
	}
	return ""
}

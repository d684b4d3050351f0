package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"

	"github.com/erseco/transcriber/internal/logging"
)

// execEngine drives a whisper command line tool that understands the
// openai-whisper flags and writes a JSON result file.
type execEngine struct {
	cmd    []string
	filter logging.Filter
}

func NewExecEngine(command string, filter logging.Filter) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &execEngine{cmd: args, filter: filter}, nil
}

func (e *execEngine) Name() string { return "exec:" + filepath.Base(e.cmd[0]) }

func (e *execEngine) args(wavPath, outDir string, opts Options) []string {
	verbose := "False"
	if opts.Verbose {
		verbose = "True"
	}
	args := append([]string{}, e.cmd[1:]...)
	args = append(args, wavPath,
		"--model", opts.Model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", verbose,
	)
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	return args
}

type execOutput struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func (e *execEngine) Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error) {
	outDir, err := os.MkdirTemp("", "transcriber_whisper_*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: temp dir: %w", ErrTranscription, err)
	}
	defer os.RemoveAll(outDir)

	args := e.args(wavPath, outDir, opts)
	log.Debug().Str("command", e.cmd[0]).Strs("args", args).Msg("whisper: running command")

	command := exec.CommandContext(ctx, e.cmd[0], args...)
	stderrLog := e.filter.Writer("whisper")
	var stderr bytes.Buffer
	command.Stderr = io.MultiWriter(stderrLog, &stderr)
	if opts.Verbose && opts.Progress != nil {
		command.Stdout = opts.Progress
	} else {
		stdoutLog := e.filter.Writer("whisper")
		defer stdoutLog.Close()
		command.Stdout = stdoutLog
	}

	runErr := command.Run()
	_ = stderrLog.Close()
	if runErr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %w", ErrModelLoad, runErr)
		}
		if line := lastLine(stderr.String(), e.filter); line != "" {
			return Result{}, fmt.Errorf("%w: %w: %s", ErrTranscription, runErr, line)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, runErr)
	}

	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read result: %w", ErrTranscription, err)
	}
	var out execOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("%w: decode result: %w", ErrTranscription, err)
	}
	return Result{Text: out.Text, Language: out.Language, Segments: out.Segments}, nil
}

func lastLine(s string, filter logging.Filter) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !filter.Suppressed(line) {
			return line
		}
	}
	return ""
}

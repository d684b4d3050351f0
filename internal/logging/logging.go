package logging

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Logs always go to stderr so that
// stdout stays reserved for the run report.
func Setup(level string, runID string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}

	var out io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	ctx := zerolog.New(out).With().Timestamp()
	if runID != "" {
		ctx = ctx.Str("run_id", runID)
	}
	log.Logger = ctx.Logger().Level(lvl)
}

// Filter drops engine diagnostics that contain any of its patterns.
type Filter struct {
	patterns []string
}

func NewFilter(patterns []string) Filter {
	var kept []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return Filter{patterns: kept}
}

func (f Filter) Suppressed(line string) bool {
	for _, p := range f.patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// Writer returns a writer that logs every unsuppressed line at debug level
// under the given source name. Close flushes a trailing partial line.
func (f Filter) Writer(source string) io.WriteCloser {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || f.Suppressed(line) {
				continue
			}
			log.Debug().Str("source", source).Msg(line)
		}
		// Keep draining so the producer never blocks on a long line.
		_, _ = io.Copy(io.Discard, pr)
	}()
	return &filterWriter{pw: pw, done: done}
}

type filterWriter struct {
	pw   *io.PipeWriter
	done chan struct{}
}

func (w *filterWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *filterWriter) Close() error {
	err := w.pw.Close()
	<-w.done
	return err
}

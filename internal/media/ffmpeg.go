package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/mattn/go-shellwords"

	"github.com/erseco/transcriber/internal/audio"
)

// Decoder turns a container file into raw PCM.
type Decoder interface {
	Decode(ctx context.Context, path string, container Container) (*goaudio.IntBuffer, error)
}

// FFmpegDecoder decodes through an ffmpeg executable, reading signed 16-bit
// PCM from its stdout.
type FFmpegDecoder struct {
	cmd        []string
	sampleRate int
	channels   int
}

func NewFFmpegDecoder(command string, sampleRate, channels int) (*FFmpegDecoder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse decoder command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("decoder command is empty")
	}
	if sampleRate <= 0 {
		sampleRate = audio.WhisperSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	return &FFmpegDecoder{cmd: args, sampleRate: sampleRate, channels: channels}, nil
}

func (d *FFmpegDecoder) args(path string, container Container) []string {
	args := append([]string{}, d.cmd[1:]...)
	return append(args,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-f", string(container),
		"-i", path,
		"-vn",
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(d.channels),
		"-ar", strconv.Itoa(d.sampleRate),
		"pipe:1",
	)
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string, container Container) (*goaudio.IntBuffer, error) {
	command := exec.CommandContext(ctx, d.cmd[0], d.args(path, container)...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg: no audio decoded from %s", path)
	}
	return audio.PCM16LEToBuffer(stdout.Bytes(), d.sampleRate, d.channels)
}

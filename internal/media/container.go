package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Container is an input audio file format.
type Container string

const (
	MP3  Container = "mp3"
	WAV  Container = "wav"
	WEBM Container = "webm"
	MP4  Container = "mp4"
)

var (
	ErrUnsupportedFormat = errors.New("input file must be an MP3, WAV, WEBM, or MP4 file")
	ErrConversion        = errors.New("audio conversion failed")
)

// ContainerOf maps path to its container by extension, case-insensitively.
// It never touches the filesystem.
func ContainerOf(path string) (Container, error) {
	switch c := Container(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")); c {
	case MP3, WAV, WEBM, MP4:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// NeedsConversion reports whether c must be decoded before transcription.
func (c Container) NeedsConversion() bool {
	return c != WAV
}

// WAVSibling replaces the final extension of path with .wav.
func WAVSibling(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".wav"
}

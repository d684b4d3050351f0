package media

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/erseco/transcriber/internal/audio"
)

// Normalized is the WAV form of a source file. When the source already was
// WAV, Path equals Source and nothing was created.
type Normalized struct {
	Source    string
	Path      string
	Container Container
}

// Temporary reports whether Path is a file created by normalization.
func (n Normalized) Temporary() bool {
	return n.Container.NeedsConversion()
}

type Normalizer struct {
	decoder Decoder
}

func NewNormalizer(decoder Decoder) *Normalizer {
	return &Normalizer{decoder: decoder}
}

// Normalize returns a WAV path for path. Non-WAV input is decoded and
// written next to the source with a .wav extension; an existing file at
// that path is overwritten.
func (n *Normalizer) Normalize(ctx context.Context, path string) (Normalized, error) {
	container, err := ContainerOf(path)
	if err != nil {
		return Normalized{}, err
	}
	if !container.NeedsConversion() {
		return Normalized{Source: path, Path: path, Container: container}, nil
	}

	pcm, err := n.decoder.Decode(ctx, path, container)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	wavPath := WAVSibling(path)
	if err := audio.WriteWAVFile(wavPath, pcm); err != nil {
		if rmErr := os.Remove(wavPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", wavPath).Msg("normalize: could not remove partial wav")
		}
		return Normalized{}, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	log.Debug().
		Str("source", path).
		Str("wav", wavPath).
		Int("samples", len(pcm.Data)).
		Int("sample_rate", pcm.Format.SampleRate).
		Msg("normalize: converted to wav")
	return Normalized{Source: path, Path: wavPath, Container: container}, nil
}

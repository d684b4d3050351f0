package whisper

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/erseco/transcriber/internal/config"
)

// openAIEngine sends the WAV file to an OpenAI compatible transcription
// endpoint and asks for segment timings.
type openAIEngine struct {
	client *openai.Client
	model  string
}

func NewOpenAIEngine(cfg config.OpenAIConfig) (Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: openai backend requires an API key", ErrModelLoad)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &openAIEngine{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (e *openAIEngine) Name() string { return "openai" }

// hostedModel maps local size tiers onto the configured hosted model and
// passes any other name through.
func (e *openAIEngine) hostedModel(model string) string {
	if model == "" || IsTier(model) {
		return e.model
	}
	return model
}

func (e *openAIEngine) Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.hostedModel(opts.Model),
		FilePath: wavPath,
		Language: opts.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	result := Result{Text: resp.Text, Language: resp.Language, Segments: make([]Segment, 0, len(resp.Segments))}
	for _, s := range resp.Segments {
		seg := Segment{ID: s.ID, Start: s.Start, End: s.End, Text: s.Text}
		result.Segments = append(result.Segments, seg)
		if opts.Verbose {
			writeProgress(opts.Progress, seg)
		}
	}
	return result, nil
}

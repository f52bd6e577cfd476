package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned when a client is used without credentials.
var ErrMissingAPIKey = errors.New("API key required")

// Transcriber handles Whisper API transcription requests.
type Transcriber struct {
	apiKey string
	opts   []option.RequestOption
}

// NewTranscriber creates a new transcription client. Extra request options
// are passed to the OpenAI client.
func NewTranscriber(apiKey string, opts ...option.RequestOption) *Transcriber {
	return &Transcriber{
		apiKey: apiKey,
		opts:   opts,
	}
}

// Transcribe transcribes one recording. filename carries the format, e.g.
// "take.mp3". drug, when set, is used as a prompt hint.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio io.Reader, drug string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("%w: set OPENAI_API_KEY or use --openai-key", ErrMissingAPIKey)
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(t.apiKey)}, t.opts...)...)

	params := openai.AudioTranscriptionNewParams{
		File:     openai.File(audio, filename, "audio/mpeg"),
		Model:    openai.AudioModelWhisper1,
		Language: openai.String("en"),
	}

	if p := transcriptionPrompt(drug); p != "" {
		params.Prompt = openai.String(p)
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return resp.Text, nil
}

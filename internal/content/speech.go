package content

import (
	"context"
	"fmt"
	"io"

	"github.com/alkime/voicecollector/internal/audio"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// speechSampleRate is the rate of OpenAI's raw PCM output (16-bit mono).
const speechSampleRate = 24000

// Speech synthesises reference samples with the OpenAI speech API.
type Speech struct {
	apiKey string
	voice  openai.AudioSpeechNewParamsVoice
	opts   []option.RequestOption
}

func NewSpeech(apiKey string, opts ...option.RequestOption) *Speech {
	return &Speech{
		apiKey: apiKey,
		voice:  openai.AudioSpeechNewParamsVoiceAlloy,
		opts:   opts,
	}
}

// Synthesize speaks text slowly and returns raw PCM.
func (s *Speech) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	if s.apiKey == "" {
		return audio.PCM{}, fmt.Errorf("%w: set OPENAI_API_KEY or use --openai-key", ErrMissingAPIKey)
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(s.apiKey)}, s.opts...)...)

	resp, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          s.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
		Speed:          openai.Float(0.85),
	})
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to synthesise speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to read synthesised speech: %w", err)
	}

	return audio.PCM{
		Data:       data,
		SampleRate: speechSampleRate,
		Channels:   1,
	}, nil
}

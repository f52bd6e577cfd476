package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alkime/voicecollector/internal/session"
)

// SampleLoader resolves the reference pronunciation for a drug.
type SampleLoader interface {
	Load(ctx context.Context, drug string) (PCM, error)
}

// Speaker plays samples and recordings through the default output device.
// It implements session.Player.
type Speaker struct {
	samples   SampleLoader
	newDevice DeviceFactory
	logger    *slog.Logger
}

// SpeakerOption customises a Speaker.
type SpeakerOption func(*Speaker)

// WithSpeakerDeviceFactory replaces the malgo device factory.
func WithSpeakerDeviceFactory(f DeviceFactory) SpeakerOption {
	return func(s *Speaker) {
		s.newDevice = f
	}
}

// WithSpeakerLogger sets the logger.
func WithSpeakerLogger(l *slog.Logger) SpeakerOption {
	return func(s *Speaker) {
		s.logger = l
	}
}

func NewSpeaker(samples SampleLoader, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		samples:   samples,
		newDevice: NewDevice,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Play starts playback in the background. The returned channel closes when
// the audio ends or ctx is cancelled.
func (s *Speaker) Play(ctx context.Context, src session.Source) (<-chan struct{}, error) {
	pcm, err := s.resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	if len(pcm.Data) == 0 {
		return nil, ErrNoAudio
	}

	conf := PlaybackConfig(pcm)
	dev := s.newDevice(&conf)
	done := make(chan struct{})

	go func() {
		defer close(done)

		err := dev.Play(ctx, bytes.NewReader(pcm.Data))
		switch {
		case err == nil:
			s.logger.Debug("playback finished", "duration", pcm.Duration())
		case errors.Is(err, context.Canceled):
			s.logger.Debug("playback interrupted")
		default:
			s.logger.Error("playback failed", "error", err)
		}
	}()

	return done, nil
}

func (s *Speaker) resolve(ctx context.Context, src session.Source) (PCM, error) {
	switch src.Kind {
	case session.SourceSample:
		if s.samples == nil {
			return PCM{}, errors.New("no sample library configured")
		}

		pcm, err := s.samples.Load(ctx, src.DrugName)
		if err != nil {
			return PCM{}, fmt.Errorf("failed to load sample for %s: %w", src.DrugName, err)
		}

		return pcm, nil

	case session.SourceRecording:
		if src.Audio == nil || len(src.Audio.PCM) == 0 {
			return PCM{}, ErrNoAudio
		}

		return PCM{
			Data:       src.Audio.PCM,
			SampleRate: src.Audio.SampleRate,
			Channels:   src.Audio.Channels,
		}, nil

	default:
		return PCM{}, fmt.Errorf("unknown playback source %d", src.Kind)
	}
}

package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is 16kHz, enough for speech and native to Whisper.
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	// DefaultBufferThreshold is 128ms of mono audio at DefaultSampleRate.
	DefaultBufferThreshold = 4096
	// DefaultMaxDuration caps a single pronunciation take.
	DefaultMaxDuration = 30 * time.Second
	// DefaultLevelWindow is how many recent samples feed the level meter.
	DefaultLevelWindow = DefaultSampleRate / 2
)

// DeviceConfig describes the PCM format a device captures or plays.
type DeviceConfig struct {
	Format           malgo.FormatType
	CaptureChannels  int
	PlaybackChannels int
	SampleRate       int
}

// CaptureConfig is the microphone format: S16LE mono at DefaultSampleRate.
func CaptureConfig() DeviceConfig {
	return DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: DefaultChannels,
		SampleRate:      DefaultSampleRate,
	}
}

// PlaybackConfig is an S16LE output format for pcm.
func PlaybackConfig(pcm PCM) DeviceConfig {
	return DeviceConfig{
		Format:           malgo.FormatS16,
		PlaybackChannels: pcm.Channels,
		SampleRate:       pcm.SampleRate,
	}
}

// EncoderConfig configures the MP3 streaming encoder.
type EncoderConfig struct {
	SampleRate int
	// Channels must be 1. The encoder writes it as dual mono.
	Channels int
	// BufferThreshold is how many PCM bytes are collected per encode pass.
	BufferThreshold int
}

// Validate reports every invalid field.
func (c EncoderConfig) Validate() error {
	var errs []error

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}

	if c.Channels != 1 {
		errs = append(errs, fmt.Errorf("only mono is supported, got %d channels", c.Channels))
	}

	if c.BufferThreshold <= 0 || c.BufferThreshold%2 != 0 {
		errs = append(errs, fmt.Errorf("buffer threshold must be a positive whole number of samples, got %d bytes", c.BufferThreshold))
	}

	return errors.Join(errs...)
}

// WithDefaults fills zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}

// bytesPerFrame returns the S16 frame size for channels.
func bytesPerFrame(channels int) int {
	return 2 * max(channels, 1)
}

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// StreamingEncoder reads raw PCM bytes from a channel, buffers to a threshold,
// then batch-encodes to MP3 and writes to an io.Writer.
//
// The encoder runs in a goroutine and finishes when the input channel is
// closed or the context is cancelled.
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan []byte
	output io.Writer
	logger *slog.Logger

	encoder *mp3encoder.Encoder
	buffer  []byte
	pcmIn   atomic.Int64

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder creates a new streaming MP3 encoder for S16LE input.
// Returns error if config is invalid or parameters are nil.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan []byte,
	output io.Writer,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{ //nolint:exhaustruct // wg, errOnce, err initialized on Start()
		config: config,
		input:  input,
		output: output,
		logger: slog.Default(),
		buffer: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// WithLogger sets the logger used for encoder diagnostics.
func (e *StreamingEncoder) WithLogger(l *slog.Logger) *StreamingEncoder {
	e.logger = l
	return e
}

// Start begins the encoding goroutine. Returns error if already started.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	// shine-mp3 mono output is broken, so encode as stereo with L=R.
	e.encoder = mp3encoder.NewEncoder(e.config.SampleRate, 2)

	e.wg.Go(func() {
		defer func() {
			if err := e.Flush(); err != nil {
				e.setError(fmt.Errorf("failed to flush encoder on shutdown: %w", err))
			}
		}()

		for {
			select {
			case data, ok := <-e.input:
				if !ok {
					return
				}

				e.pcmIn.Add(int64(len(data)))
				e.buffer = append(e.buffer, data...)

				if len(e.buffer) >= e.config.BufferThreshold {
					if err := e.encodeBatch(); err != nil {
						e.setError(err)
						return
					}
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// encodeBatch converts buffered PCM data to MP3 and writes to output.
func (e *StreamingEncoder) encodeBatch() error {
	if len(e.buffer) < 2 {
		return nil
	}

	// An odd trailing byte waits for the next packet.
	whole := len(e.buffer) &^ 1
	stereo := monoToStereo(BytesToInt16(e.buffer[:whole]))

	e.logger.Debug("encoding MP3 batch", "stereoSamples", len(stereo))

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	rest := copy(e.buffer, e.buffer[whole:])
	e.buffer = e.buffer[:rest]

	return nil
}

// Flush encodes any remaining buffered data. Safe to call multiple times.
func (e *StreamingEncoder) Flush() error {
	if err := e.encodeBatch(); err != nil {
		return fmt.Errorf("failed to flush MP3 encoder: %w", err)
	}

	return nil
}

// PCMBytes returns how many PCM bytes the encoder has consumed.
func (e *StreamingEncoder) PCMBytes() int64 {
	return e.pcmIn.Load()
}

// Wait blocks until encoding completes and returns any error that occurred.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

// setError records the first error that occurs.
func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
		e.logger.Debug("streaming encoder error", "error", err)
	})
}

// Package collector assembles the storage, sample and content services shared
// by the voice CLI and the server.
package collector

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/alkime/voicecollector/internal/samples"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/workdir"
)

// Options configures Open. API keys must already be resolved; an empty key
// disables the feature that needs it.
type Options struct {
	DataDir    string
	SamplesDir string

	DryRun      bool
	DryRunDelay time.Duration
	Retry       dataset.RetryConfig

	OpenAIAPIKey    string
	AnthropicAPIKey string
	Transcribe      bool

	Logger *slog.Logger
}

// Services are the wired collaborators.
type Services struct {
	Dir      workdir.Dir
	Manifest *dataset.Manifest
	Uploader session.Uploader
	Samples  *samples.Library

	// Hinter is nil without an Anthropic key.
	Hinter *content.Hinter
}

// Open prepares the data directory and builds the services.
func Open(opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := workdir.Resolve(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	if err := dir.Prep(); err != nil {
		return nil, err
	}

	manifest, err := dataset.OpenManifest(dir.Manifest())
	if err != nil {
		return nil, err
	}

	svc := &Services{
		Dir:      dir,
		Manifest: manifest,
	}

	if opts.DryRun {
		svc.Uploader = dataset.NewLogSink(opts.DryRunDelay, logger)
		logger.Info("dry run: recordings are logged, not stored")
	} else {
		sinkOpts := []dataset.FileSinkOption{
			dataset.WithRetry(opts.Retry),
			dataset.WithLogger(logger),
		}

		if opts.Transcribe {
			if opts.OpenAIAPIKey == "" {
				_ = manifest.Close()
				return nil, fmt.Errorf("transcription: %w", content.ErrMissingAPIKey)
			}
			sinkOpts = append(sinkOpts, dataset.WithTranscriber(content.NewTranscriber(opts.OpenAIAPIKey)))
		}

		sink, err := dataset.NewFileSink(dir.Dataset(), manifest, sinkOpts...)
		if err != nil {
			_ = manifest.Close()
			return nil, err
		}

		svc.Uploader = sink
	}

	libOpts := []samples.Option{samples.WithLogger(logger)}
	if opts.OpenAIAPIKey != "" {
		libOpts = append(libOpts, samples.WithSynthesizer(content.NewSpeech(opts.OpenAIAPIKey)))
	}

	svc.Samples = samples.New(samplesDir(dir, opts.SamplesDir), libOpts...)

	if opts.AnthropicAPIKey != "" {
		svc.Hinter = content.NewHinter(opts.AnthropicAPIKey)
	}

	logger.Debug("collector services ready",
		"dataDir", string(dir),
		"dryRun", opts.DryRun,
		"transcribe", opts.Transcribe,
		"synthesis", opts.OpenAIAPIKey != "",
		"hints", svc.Hinter != nil)

	return svc, nil
}

// samplesDir resolves a relative samples directory against the data root.
func samplesDir(dir workdir.Dir, samples string) string {
	if samples == "" || filepath.IsAbs(samples) {
		return samples
	}

	return filepath.Join(string(dir), samples)
}

// Close releases the manifest.
func (s *Services) Close() error {
	if s.Manifest == nil {
		return nil
	}

	return s.Manifest.Close()
}

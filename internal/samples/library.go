// Package samples serves the reference pronunciation for each drug in the
// catalog.
package samples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/audio"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/hajimehoshi/go-mp3"
	"github.com/patrickmn/go-cache"
)

const (
	defaultTTL     = 30 * time.Minute
	cleanupEvery   = 10 * time.Minute
	decodedChannel = 2 // go-mp3 always yields 16-bit stereo
)

var (
	// ErrSampleNotFound is returned when no recording or synthesiser can
	// provide a sample.
	ErrSampleNotFound = errors.New("sample not found")
	// ErrUnknownDrug is returned for names outside the catalog.
	ErrUnknownDrug = errors.New("unknown drug")
)

// Synthesizer produces speech for text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.PCM, error)
}

// Library loads samples from <dir>/<drug>.mp3, falling back to speech
// synthesis. Decoded samples are cached.
type Library struct {
	dir    string
	synth  Synthesizer
	cache  *cache.Cache
	logger *slog.Logger
}

type Option func(*Library)

// WithSynthesizer enables the synthesis fallback.
func WithSynthesizer(s Synthesizer) Option {
	return func(l *Library) {
		l.synth = s
	}
}

// WithTTL sets how long decoded samples stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(l *Library) {
		l.cache = cache.New(ttl, cleanupEvery)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

func New(dir string, opts ...Option) *Library {
	l := &Library{
		dir:    dir,
		cache:  cache.New(defaultTTL, cleanupEvery),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Path returns where the sample file for drug lives, whether or not it exists.
func (l *Library) Path(drug string) (string, error) {
	name, ok := session.LookupDrug(drug)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDrug, drug)
	}

	return filepath.Join(l.dir, strings.ToLower(name)+".mp3"), nil
}

// Open returns the raw sample file for drug.
func (l *Library) Open(drug string) (io.ReadCloser, error) {
	path, err := l.Path(drug)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSampleNotFound, drug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %w", err)
	}

	return f, nil
}

// Load returns the sample for drug as PCM.
func (l *Library) Load(ctx context.Context, drug string) (audio.PCM, error) {
	name, ok := session.LookupDrug(drug)
	if !ok {
		return audio.PCM{}, fmt.Errorf("%w: %q", ErrUnknownDrug, drug)
	}

	if v, found := l.cache.Get(name); found {
		return v.(audio.PCM), nil //nolint:forcetypeassert // only PCM is stored
	}

	pcm, err := l.decode(name)
	if errors.Is(err, ErrSampleNotFound) && l.synth != nil {
		l.logger.Info("no sample recording, synthesising", "drug", name)
		pcm, err = l.synth.Synthesize(ctx, name)
		if err != nil {
			err = fmt.Errorf("failed to synthesise sample: %w", err)
		}
	}

	if err != nil {
		return audio.PCM{}, err
	}

	l.cache.SetDefault(name, pcm)

	return pcm, nil
}

// Available reports whether drug has a sample file.
func (l *Library) Available(drug string) bool {
	path, err := l.Path(drug)
	if err != nil {
		return false
	}

	_, err = os.Stat(path)

	return err == nil
}

func (l *Library) decode(drug string) (audio.PCM, error) {
	rc, err := l.Open(drug)
	if err != nil {
		return audio.PCM{}, err
	}
	defer rc.Close()

	dec, err := mp3.NewDecoder(rc)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to decode sample %s: %w", drug, err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to decode sample %s: %w", drug, err)
	}

	return audio.PCM{
		Data:       data,
		SampleRate: dec.SampleRate(),
		Channels:   decodedChannel,
	}, nil
}

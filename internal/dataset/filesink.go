package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/avast/retry-go/v4"
)

// maxKeyClaims bounds how many timestamps Upload tries for one recording.
const maxKeyClaims = 1000

// ErrKeyExists means a recording is already stored under the key.
var ErrKeyExists = errors.New("dataset key already exists")

// Transcriber annotates recordings with what was said.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, drug string) (string, error)
}

// FileSink stores recordings under a root directory and indexes them in a
// Manifest. It implements session.Uploader.
type FileSink struct {
	root        string
	manifest    *Manifest
	retry       RetryConfig
	transcriber Transcriber
	now         func() time.Time
	logger      *slog.Logger
}

type FileSinkOption func(*FileSink)

func WithRetry(rc RetryConfig) FileSinkOption {
	return func(s *FileSink) {
		s.retry = rc
	}
}

// WithTranscriber stores a transcript with each recording.
func WithTranscriber(t Transcriber) FileSinkOption {
	return func(s *FileSink) {
		s.transcriber = t
	}
}

// WithClock replaces time.Now for key timestamps.
func WithClock(now func() time.Time) FileSinkOption {
	return func(s *FileSink) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) FileSinkOption {
	return func(s *FileSink) {
		s.logger = l
	}
}

func NewFileSink(root string, manifest *Manifest, opts ...FileSinkOption) (*FileSink, error) {
	if root == "" {
		return nil, errors.New("dataset root cannot be empty")
	}

	if manifest == nil {
		return nil, errors.New("manifest cannot be nil")
	}

	s := &FileSink{
		root:     root,
		manifest: manifest,
		retry:    DefaultRetryConfig(),
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the file path for key.
func (s *FileSink) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Upload writes the recording and its manifest row.
func (s *FileSink) Upload(ctx context.Context, audio *session.Audio, md session.Metadata) (session.Receipt, error) {
	if audio == nil || len(audio.Data) == 0 {
		return session.Receipt{}, errors.New("empty recording")
	}

	at := s.now().UTC()

	var (
		key string
		rec Record
		err error
	)

	// Keys carry millisecond timestamps. A key that is already taken moves the
	// timestamp on by one millisecond until a free one is claimed.
	for range maxKeyClaims {
		key = Key(md, at, audio.Ext)

		rec, err = s.store(ctx, key, audio, md, at)
		if !errors.Is(err, ErrKeyExists) {
			break
		}

		s.logger.Debug("dataset key taken", "key", key)
		at = at.Add(time.Millisecond)
	}

	if err != nil {
		return session.Receipt{}, err
	}

	s.logger.Info("recording stored",
		"key", key,
		"drug", rec.Drug,
		"gender", rec.Gender,
		"pharmacy", rec.Pharmacy,
		"bytes", rec.Bytes)

	return session.Receipt{Key: key, UploadedAt: at, Metadata: md}, nil
}

// store writes the recording under key and indexes it. It returns
// ErrKeyExists when the file or the manifest row is already there.
func (s *FileSink) store(
	ctx context.Context, key string, audio *session.Audio, md session.Metadata, at time.Time,
) (Record, error) {
	dst := s.Path(key)

	opts := append(s.retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("retrying dataset write", "key", key, "attempt", n+1, "error", err)
		}),
	)

	err := retry.Do(
		func() error { return writeFileExclusive(dst, audio.Data) },
		append(opts, retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrKeyExists) }))...,
	)
	if err != nil {
		if errors.Is(err, ErrKeyExists) {
			return Record{}, err
		}

		return Record{}, fmt.Errorf("failed to store recording: %w", err)
	}

	rec := NewRecord(key, audio, md, at)
	rec.Transcript = s.transcribe(ctx, key, audio, md)

	err = retry.Do(
		func() error { return s.manifest.Add(ctx, rec) },
		append(opts, retry.RetryIf(isConflict))...,
	)
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			s.logger.Error("failed to remove orphaned recording", "path", dst, "error", rmErr)
		}

		if errors.Is(err, ErrKeyExists) {
			return Record{}, err
		}

		return Record{}, fmt.Errorf("failed to index recording: %w", err)
	}

	return rec, nil
}

// transcribe is best effort: a failed transcription never fails the upload.
func (s *FileSink) transcribe(ctx context.Context, key string, audio *session.Audio, md session.Metadata) string {
	if s.transcriber == nil {
		return ""
	}

	text, err := s.transcriber.Transcribe(ctx, path.Base(key), bytes.NewReader(audio.Data), md.DrugName)
	if err != nil {
		s.logger.Warn("transcription failed", "key", key, "error", err)
		return ""
	}

	return text
}

// writeFileExclusive writes data to a temp file next to dst and links it
// into place. An existing dst is never replaced.
func writeFileExclusive(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Link(tmp.Name(), dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, dst)
		}

		return fmt.Errorf("link into place: %w", err)
	}

	return nil
}

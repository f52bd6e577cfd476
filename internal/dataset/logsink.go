package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/voicecollector/internal/session"
)

// LogSink pretends to upload: it logs the key and metadata after a delay.
// It stores nothing.
type LogSink struct {
	delay  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewLogSink(delay time.Duration, logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSink{delay: delay, now: time.Now, logger: logger}
}

func (s *LogSink) Upload(ctx context.Context, audio *session.Audio, md session.Metadata) (session.Receipt, error) {
	if audio == nil {
		return session.Receipt{}, errors.New("empty recording")
	}

	at := s.now().UTC()
	key := Key(md, at, audio.Ext)

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return session.Receipt{}, fmt.Errorf("upload cancelled: %w", ctx.Err())
	}

	rec := NewRecord(key, audio, md, at)
	s.logger.Info("dry-run upload",
		"key", key,
		"drug", rec.Drug,
		"gender", rec.Gender,
		"pharmacy", rec.Pharmacy,
		"timestamp", rec.Timestamp.Format(time.RFC3339Nano),
		"bytes", rec.Bytes)

	return session.Receipt{Key: key, UploadedAt: at, Metadata: md}, nil
}

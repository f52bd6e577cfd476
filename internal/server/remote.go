package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alkime/voicecollector/internal/samples"
	"github.com/alkime/voicecollector/internal/session"
)

var (
	errCaptureOpen   = errors.New("capture already open")
	errNoRecording   = errors.New("no recording received")
	errNothingToPlay = errors.New("nothing to play")
)

// remoteStream marks a capture running in the browser.
type remoteStream struct {
	startedAt time.Time
}

// inboundCapturer is the server side of browser capture. The browser owns
// the microphone; Request only opens the slot and Stop collects the blob
// handed over with Feed.
type inboundCapturer struct {
	mu      sync.Mutex
	open    *remoteStream
	pending *session.Audio
}

func (c *inboundCapturer) Request(context.Context) (session.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open != nil {
		return nil, errCaptureOpen
	}

	c.open = &remoteStream{startedAt: time.Now().UTC()}
	c.pending = nil

	return c.open, nil
}

// Feed hands over the recording uploaded by the browser.
func (c *inboundCapturer) Feed(a *session.Audio) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = a
}

func (c *inboundCapturer) Stop(_ context.Context, s session.Stream) (*session.Audio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs, ok := s.(*remoteStream)
	if !ok || rs != c.open {
		return nil, errors.New("unknown capture stream")
	}

	a := c.pending
	c.pending = nil

	if a == nil {
		return nil, errNoRecording
	}

	a.CapturedAt = rs.startedAt
	if a.Duration <= 0 {
		a.Duration = time.Since(rs.startedAt)
	}

	return a, nil
}

func (c *inboundCapturer) Release(s session.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rs, ok := s.(*remoteStream); ok && rs == c.open {
		c.open = nil
		c.pending = nil
	}
}

const defaultPlaybackTimeout = 30 * time.Second

// remotePlayer acknowledges playback the browser performs. The browser
// reports natural completion through the playback ended endpoint. Done
// closes when the wizard supersedes the playback or the timeout passes.
type remotePlayer struct {
	samples SampleStore
	timeout time.Duration
}

func (p remotePlayer) Play(ctx context.Context, src session.Source) (<-chan struct{}, error) {
	switch src.Kind {
	case session.SourceSample:
		if p.samples == nil || !p.samples.Available(src.DrugName) {
			return nil, fmt.Errorf("%w: %s", samples.ErrSampleNotFound, src.DrugName)
		}
	case session.SourceRecording:
		if src.Audio == nil || len(src.Audio.Data) == 0 {
			return nil, errNothingToPlay
		}
	default:
		return nil, fmt.Errorf("unknown playback source %d", src.Kind)
	}

	limit := p.timeout
	if limit <= 0 {
		limit = defaultPlaybackTimeout
	}
	if src.Kind == session.SourceRecording {
		limit += src.Audio.Duration
	}

	pctx, cancel := context.WithTimeout(ctx, limit)
	done := make(chan struct{})
	context.AfterFunc(pctx, func() {
		cancel()
		close(done)
	})

	return done, nil
}

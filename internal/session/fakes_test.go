package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alkime/voicecollector/internal/session"
)

// fakeStream is the stream handed out by fakeCapturer.
type fakeStream struct {
	id       int
	released bool
}

// fakeCapturer implements session.Capturer for testing.
type fakeCapturer struct {
	mu         sync.Mutex
	requestErr error
	stopErr    error
	requests   int
	stops      int
	releases   map[int]int
	block      chan struct{} // when set, Request waits on it
	stopBlock  chan struct{} // when set, Stop waits on it
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{releases: map[int]int{}}
}

func (f *fakeCapturer) Request(ctx context.Context) (session.Stream, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.requestErr != nil {
		err := f.requestErr
		f.requestErr = nil
		return nil, err
	}

	f.requests++

	return &fakeStream{id: f.requests}, nil
}

func (f *fakeCapturer) Stop(_ context.Context, s session.Stream) (*session.Audio, error) {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()

	if f.stopBlock != nil {
		<-f.stopBlock
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopErr != nil {
		return nil, f.stopErr
	}

	st := s.(*fakeStream) //nolint:forcetypeassert // test fake

	return &session.Audio{
		ID:          fmt.Sprintf("audio-%d", st.id),
		Data:        []byte("mp3 bytes"),
		ContentType: "audio/mpeg",
		Ext:         "mp3",
		Duration:    time.Second,
		CapturedAt:  time.Now(),
	}, nil
}

func (f *fakeCapturer) Release(s session.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := s.(*fakeStream) //nolint:forcetypeassert // test fake
	if !st.released {
		st.released = true
		f.releases[st.id]++
	}
}

// openStreams returns how many requested streams were never released.
func (f *fakeCapturer) openStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests - len(f.releases)
}

// fakePlayer implements session.Player for testing.
type fakePlayer struct {
	mu      sync.Mutex
	err     error
	sources []session.Source
	ctxs    []context.Context
	done    []chan struct{}
}

func (f *fakePlayer) Play(ctx context.Context, src session.Source) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	done := make(chan struct{})
	f.sources = append(f.sources, src)
	f.ctxs = append(f.ctxs, ctx)
	f.done = append(f.done, done)

	return done, nil
}

func (f *fakePlayer) finish(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	close(f.done[i])
}

// fakeUploader implements session.Uploader for testing.
type fakeUploader struct {
	mu       sync.Mutex
	errs     []error // consumed one per call
	calls    int
	uploaded []*session.Audio
	metadata []session.Metadata
	release  chan struct{} // when set, Upload waits on it
}

var errNetwork = errors.New("network unreachable")

func (f *fakeUploader) Upload(_ context.Context, audio *session.Audio, md session.Metadata) (session.Receipt, error) {
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return session.Receipt{}, err
		}
	}

	f.uploaded = append(f.uploaded, audio)
	f.metadata = append(f.metadata, md)

	return session.Receipt{
		Key:        "dataset/female/ibuprofen/audio_test.mp3",
		UploadedAt: time.Now(),
	}, nil
}

func (f *fakeCapturer) stopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stops
}

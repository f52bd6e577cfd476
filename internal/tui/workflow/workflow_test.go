package workflow

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	intervl, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		intervl: 100 * time.Millisecond,
		timeout: 3 * time.Second,
	}
}

func (o outputChecker) check(t *testing.T, tm *teatest.TestModel, checkFunc func(buf []byte) bool) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), checkFunc,
		teatest.WithCheckInterval(o.intervl),
		teatest.WithDuration(o.timeout))
}

func (o outputChecker) checkString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	o.check(t, tm, func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	})
}

// mockCapturer implements session.Capturer for testing.
type mockCapturer struct {
	mu         sync.Mutex
	requestErr error
	requests   int
	stops      int
}

func (m *mockCapturer) Request(_ context.Context) (session.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.requestErr != nil {
		return nil, m.requestErr
	}

	m.requests++

	return m.requests, nil
}

func (m *mockCapturer) Stop(_ context.Context, _ session.Stream) (*session.Audio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stops++

	return &session.Audio{
		ID:          "take",
		Data:        []byte("mp3"),
		ContentType: "audio/mpeg",
		Ext:         "mp3",
		Duration:    1500 * time.Millisecond,
		CapturedAt:  time.Now(),
	}, nil
}

func (m *mockCapturer) Release(_ session.Stream) {}

func (m *mockCapturer) counts() (requests, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.requests, m.stops
}

// mockPlayer implements session.Player for testing.
type mockPlayer struct {
	mu      sync.Mutex
	sources []session.Source
	done    []chan struct{}
}

func (m *mockPlayer) Play(_ context.Context, src session.Source) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := make(chan struct{})
	m.sources = append(m.sources, src)
	m.done = append(m.done, done)

	return done, nil
}

func (m *mockPlayer) played() []session.Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]session.Source(nil), m.sources...)
}

func (m *mockPlayer) finish(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	close(m.done[i])
}

// mockUploader implements session.Uploader for testing.
type mockUploader struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (m *mockUploader) Upload(_ context.Context, _ *session.Audio, md session.Metadata) (session.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]

		return session.Receipt{}, err
	}

	return session.Receipt{
		Key:        "dataset/female/ibuprofen/audio_test.mp3",
		UploadedAt: time.Now(),
		Metadata:   md,
	}, nil
}

func (m *mockUploader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// mockHints implements HintSource for testing.
type mockHints struct{}

func (mockHints) Hint(_ context.Context, drug string) (content.Hint, error) {
	if drug != "Ibuprofen" {
		return content.Hint{}, errors.New("no hint")
	}

	return content.Hint{
		Respelling: "eye-byoo-PROH-fen",
		Syllables:  []string{"i", "bu", "pro", "fen"},
	}, nil
}

type fixture struct {
	wizard   *session.Wizard
	capturer *mockCapturer
	player   *mockPlayer
	uploader *mockUploader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		capturer: &mockCapturer{},
		player:   &mockPlayer{},
		uploader: &mockUploader{},
	}

	w, err := session.New(session.Config{
		Capturer: f.capturer,
		Player:   f.player,
		Uploader: f.uploader,
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	f.wizard = w

	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Ctx:    context.Background(),
		Wizard: f.wizard,
		Hints:  mockHints{},
	}
}

// toSample submits the info step.
func (f *fixture) toSample(t *testing.T) {
	t.Helper()

	require.NoError(t, f.wizard.SubmitInfo(session.Metadata{
		Gender:   session.GenderFemale,
		DrugName: "Ibuprofen",
	}))
}

// toRecord moves the wizard onto the record step.
func (f *fixture) toRecord(t *testing.T) {
	t.Helper()

	f.toSample(t)
	require.NoError(t, f.wizard.Next())
}

func (f *fixture) waitStep(t *testing.T, step session.Step) {
	t.Helper()

	require.Eventually(t, func() bool {
		return f.wizard.Snapshot().Step == step
	}, 2*time.Second, 20*time.Millisecond, "wizard should reach %s", step)
}

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/pkg/channels"
	"github.com/google/uuid"
)

// subscriberTimeout bounds how long a slow pipeline stage may hold up a packet.
const subscriberTimeout = 250 * time.Millisecond

// MicrophoneConfig configures capture.
type MicrophoneConfig struct {
	Device      DeviceConfig
	Encoder     EncoderConfig
	MaxDuration time.Duration
	LevelWindow int
}

func (c MicrophoneConfig) withDefaults() MicrophoneConfig {
	if c.Device.SampleRate == 0 {
		c.Device = CaptureConfig()
	}

	c.Encoder = c.Encoder.WithDefaults()
	c.Encoder.SampleRate = c.Device.SampleRate
	c.Encoder.Channels = c.Device.CaptureChannels

	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxDuration
	}

	if c.LevelWindow <= 0 {
		c.LevelWindow = DefaultLevelWindow
	}

	return c
}

// Microphone captures takes from the default input device. It implements
// session.Capturer. Only one stream is open at a time.
type Microphone struct {
	conf      MicrophoneConfig
	newDevice DeviceFactory
	logger    *slog.Logger

	levels *LevelMeter

	mu      sync.Mutex
	current *captureStream
}

// MicrophoneOption customises a Microphone.
type MicrophoneOption func(*Microphone)

// WithDeviceFactory replaces the malgo device factory.
func WithDeviceFactory(f DeviceFactory) MicrophoneOption {
	return func(m *Microphone) {
		m.newDevice = f
	}
}

// WithMicrophoneLogger sets the logger.
func WithMicrophoneLogger(l *slog.Logger) MicrophoneOption {
	return func(m *Microphone) {
		m.logger = l
	}
}

func NewMicrophone(conf MicrophoneConfig, opts ...MicrophoneOption) *Microphone {
	conf = conf.withDefaults()

	m := &Microphone{
		conf:      conf,
		newDevice: NewDevice,
		logger:    slog.Default(),
		levels:    NewLevelMeter(conf.LevelWindow),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Levels returns the most recent samples of the open stream for metering.
func (m *Microphone) Levels() []int16 {
	return m.levels.Recent(m.conf.LevelWindow)
}

// Read implements uictl.Levels.
func (m *Microphone) Read() []int16 {
	return m.Levels()
}

// Elapsed returns how much audio the open stream has captured.
func (m *Microphone) Elapsed() time.Duration {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil {
		return 0
	}

	return s.elapsed()
}

// MaxDuration returns the take length limit.
func (m *Microphone) MaxDuration() time.Duration {
	return m.conf.MaxDuration
}

// Request opens the microphone and starts the capture pipeline.
func (m *Microphone) Request(ctx context.Context) (session.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, errors.New("microphone already in use")
	}

	dev := m.newDevice(&m.conf.Device)

	packets, err := dev.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	m.levels.Reset()

	s, err := m.startPipeline(dev, packets)
	if err != nil {
		dev.Dealloc(ctx)
		return nil, err
	}

	if err := dev.Start(ctx); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	m.current = s
	m.logger.Debug("microphone opened", "stream", s.id)

	return s, nil
}

// Stop ends capture, frees the device and returns the encoded take.
func (m *Microphone) Stop(ctx context.Context, stream session.Stream) (*session.Audio, error) {
	s, ok := stream.(*captureStream)
	if !ok || s.owner != m {
		return nil, ErrUnknownStream
	}

	if err := s.dev.Stop(ctx); err != nil {
		m.logger.Warn("failed to stop capture device", "error", err)
	}

	encErr := s.shutdown()
	m.forget(s)

	for name, st := range s.bc.Stats() {
		if st.Dropped > 0 {
			m.logger.Warn("capture packets dropped", "stream", s.id, "stage", name, "dropped", st.Dropped)
		}
	}

	if encErr != nil {
		return nil, fmt.Errorf("failed to encode recording: %w", encErr)
	}

	pcm := s.pcm.Bytes()
	if len(pcm) == 0 {
		return nil, errors.New("no audio captured")
	}

	m.logger.Debug("take captured",
		"stream", s.id,
		"bytes", len(pcm),
		"peak", m.levels.Peak(),
		"clipped", m.levels.Clipped(),
	)

	return &session.Audio{
		ID:          uuid.NewString(),
		Data:        bytes.Clone(s.mp3.Bytes()),
		ContentType: "audio/mpeg",
		Ext:         "mp3",
		PCM:         pcm,
		SampleRate:  m.conf.Device.SampleRate,
		Channels:    m.conf.Device.CaptureChannels,
		Duration:    PCMDuration(len(pcm), m.conf.Device.SampleRate, m.conf.Device.CaptureChannels),
		CapturedAt:  s.startedAt,
	}, nil
}

// Release abandons the stream. Safe to call after Stop.
func (m *Microphone) Release(stream session.Stream) {
	s, ok := stream.(*captureStream)
	if !ok || s.owner != m {
		return
	}

	_ = s.dev.Stop(context.Background())
	_ = s.shutdown()
	m.forget(s)
}

func (m *Microphone) forget(s *captureStream) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == s {
		m.current = nil
	}
}

// startPipeline fans device packets out to the MP3 encoder and the PCM
// collector.
func (m *Microphone) startPipeline(dev Device, packets <-chan DataPacket) (*captureStream, error) {
	bcCtx, cancel := context.WithCancel(context.Background())

	s := &captureStream{
		id:        uuid.NewString(),
		owner:     m,
		dev:       dev,
		cancel:    cancel,
		bc:        channels.NewBroadcaster[DataPacket](),
		mp3:       &bytes.Buffer{},
		pcm:       &bytes.Buffer{},
		encC:      make(chan DataPacket, 64),
		pcmC:      make(chan DataPacket, 64),
		stopC:     make(chan struct{}),
		fwdDone:   make(chan struct{}),
		pcmDone:   make(chan struct{}),
		startedAt: time.Now().UTC(),
		maxBytes:  PCMBytes(m.conf.MaxDuration, m.conf.Device.SampleRate, m.conf.Device.CaptureChannels),
		frame:     bytesPerFrame(m.conf.Device.CaptureChannels),
		rate:      m.conf.Device.SampleRate,
	}

	if err := s.bc.Subscribe("encoder", s.encC, subscriberTimeout); err != nil {
		cancel()
		return nil, err
	}

	if err := s.bc.Subscribe("levels", s.pcmC, subscriberTimeout); err != nil {
		cancel()
		return nil, err
	}

	input, err := s.bc.Run(bcCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start packet broadcaster: %w", err)
	}

	enc, err := NewStreamingEncoder(m.conf.Encoder, s.encC, s.mp3)
	if err != nil {
		cancel()
		return nil, err
	}

	s.enc = enc.WithLogger(m.logger)
	if err := s.enc.Start(context.Background()); err != nil {
		cancel()
		return nil, err
	}

	go s.collect(m.levels)
	go s.forward(packets, input)

	return s, nil
}

type captureStream struct {
	id    string
	owner *Microphone
	dev   Device

	cancel context.CancelFunc
	bc     *channels.Broadcaster[DataPacket]
	enc    *StreamingEncoder

	mp3 *bytes.Buffer
	pcm *bytes.Buffer

	encC chan DataPacket
	pcmC chan DataPacket

	stopC   chan struct{}
	fwdDone chan struct{}
	pcmDone chan struct{}

	startedAt time.Time
	maxBytes  int
	frame     int
	rate      int

	mu       sync.Mutex
	accepted int

	once   sync.Once
	encErr error
}

// forward copies device packets into the broadcaster until stopped, keeping
// at most maxBytes of audio.
func (s *captureStream) forward(packets <-chan DataPacket, input chan<- DataPacket) {
	defer close(s.fwdDone)

	for {
		select {
		case p := <-packets:
			s.push(p, input)
		case <-s.stopC:
			// the device is stopped; drain what it already produced
			for {
				select {
				case p := <-packets:
					s.push(p, input)
				default:
					return
				}
			}
		}
	}
}

func (s *captureStream) push(p DataPacket, input chan<- DataPacket) {
	s.mu.Lock()
	room := s.maxBytes - s.accepted
	if room <= 0 {
		s.mu.Unlock()
		return
	}

	if len(p) > room {
		p = p[:room-room%s.frame]
	}
	s.accepted += len(p)
	s.mu.Unlock()

	if len(p) > 0 {
		input <- p
	}
}

func (s *captureStream) collect(levels *LevelMeter) {
	defer close(s.pcmDone)

	for p := range s.pcmC {
		s.pcm.Write(p)
		levels.Write(BytesToInt16(p))
	}
}

func (s *captureStream) elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return PCMDuration(s.accepted, s.rate, s.frame/2)
}

// shutdown tears down the pipeline in order and frees the device. It runs
// once; later calls return the first result.
func (s *captureStream) shutdown() error {
	s.once.Do(func() {
		close(s.stopC)
		<-s.fwdDone

		s.cancel()
		s.bc.Wait()

		close(s.encC)
		close(s.pcmC)

		s.encErr = s.enc.Wait()
		<-s.pcmDone

		s.dev.Dealloc(context.Background())
	})

	return s.encErr
}

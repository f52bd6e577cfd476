package audio_test

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"

	"github.com/alkime/voicecollector/internal/audio"
)

// fakeDevice implements audio.Device without touching hardware.
type fakeDevice struct {
	mu sync.Mutex

	conf       audio.DeviceConfig
	captureErr error
	startErr   error
	blockPlay  bool // Play waits for ctx instead of draining the reader

	packets   chan audio.DataPacket
	started   bool
	deallocs  int
	played    []byte
	playCalls int
}

func (d *fakeDevice) EnumerateDevices(context.Context) ([]audio.Info, error) {
	return []audio.Info{{Name: "fake", IsDefault: true}}, nil
}

func (d *fakeDevice) Capture(ctx context.Context) (<-chan audio.DataPacket, error) {
	ch := make(chan audio.DataPacket, 64)
	if err := d.CaptureInto(ctx, ch); err != nil {
		return nil, err
	}

	return ch, nil
}

func (d *fakeDevice) CaptureInto(_ context.Context, dataC chan audio.DataPacket) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.captureErr != nil {
		return d.captureErr
	}

	d.packets = dataC

	return nil
}

func (d *fakeDevice) Play(ctx context.Context, r io.Reader) error {
	d.mu.Lock()
	d.playCalls++
	block := d.blockPlay
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.played = append(d.played, data...)
	d.mu.Unlock()

	return nil
}

func (d *fakeDevice) Start(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startErr != nil {
		return d.startErr
	}

	d.started = true

	return nil
}

func (d *fakeDevice) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.started = false

	return nil
}

func (d *fakeDevice) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

func (d *fakeDevice) Dealloc(context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deallocs++
}

// feed pushes pcm into the capture channel in packets of size n.
func (d *fakeDevice) feed(pcm []byte, n int) {
	for len(pcm) > 0 {
		k := min(n, len(pcm))
		d.packets <- append([]byte(nil), pcm[:k]...)
		pcm = pcm[k:]
	}
}

func (d *fakeDevice) snapshot() (deallocs int, played []byte, started bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.deallocs, append([]byte(nil), d.played...), d.started
}

// deviceRecorder hands out fakeDevices and remembers them.
type deviceRecorder struct {
	mu      sync.Mutex
	proto   fakeDevice
	devices []*fakeDevice
}

func (r *deviceRecorder) factory(conf *audio.DeviceConfig) audio.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := &fakeDevice{
		conf:       *conf,
		captureErr: r.proto.captureErr,
		startErr:   r.proto.startErr,
		blockPlay:  r.proto.blockPlay,
	}
	r.devices = append(r.devices, d)

	return d
}

func (r *deviceRecorder) last() *fakeDevice {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.devices[len(r.devices)-1]
}

// sine returns d seconds of a 440Hz tone as S16LE mono.
func sine(sampleRate int, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	samples := make([]int16, n)

	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	return audio.Int16ToBytes(samples)
}

type fakeLoader struct {
	pcm audio.PCM
	err error
}

func (f fakeLoader) Load(context.Context, string) (audio.PCM, error) {
	return f.pcm, f.err
}

var errNoDevice = errors.New("no capture device")

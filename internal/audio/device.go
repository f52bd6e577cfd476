package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/alkime/voicecollector/pkg/channels"
	"github.com/alkime/voicecollector/pkg/collections"
	"github.com/gen2brain/malgo"
)

type Device interface {
	// EnumerateDevices lists available capture devices.
	// It ignores any device configuration passed in.
	EnumerateDevices(ctx context.Context) ([]Info, error)

	// Capture initializes the underlying device and allocates a data packet
	// channel which, when Start() is called, will start receiving audio from
	// that device and writing packets of sampled bytes into the channel.
	Capture(ctx context.Context) (<-chan DataPacket, error)

	// CaptureInto initializes the underlying device and uses the provided
	// data channel to write packets of sampled bytes into when Start() is called.
	// Packets are dropped while the channel is full.
	CaptureInto(ctx context.Context, dataC chan DataPacket) error

	// Play allocates a playback device and plays r to the end or until ctx
	// is cancelled. The device is released before Play returns.
	Play(ctx context.Context, r io.Reader) error

	// Start starts the audio device.
	Start(ctx context.Context) error
	// Stop stops the audio device.
	// if the underlying device has already been deallocated this is a no-op.
	Stop(ctx context.Context) error

	// IsStarted returns whether the audio device is currently started.
	IsStarted() bool

	// Dealloc deallocates the underlying audio device and frees resources.
	Dealloc(ctx context.Context)
}

// DeviceFactory creates a device for a format.
type DeviceFactory func(conf *DeviceConfig) Device

type device struct {
	conf *DeviceConfig

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewDevice returns a malgo-backed device. Nothing is allocated until
// Capture or Play.
func NewDevice(conf *DeviceConfig) Device {
	return &device{conf: conf}
}

func (d *device) EnumerateDevices(ctx context.Context) ([]Info, error) {
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	return collections.Apply(captureDevices, malgoDeviceInfoToDeviceInfo), nil
}

func (d *device) Capture(ctx context.Context) (<-chan DataPacket, error) {
	dataC := make(chan DataPacket, 64)
	err := d.CaptureInto(ctx, dataC)
	if err != nil {
		return nil, fmt.Errorf("failed to capture into channel: %w", err)
	}

	return dataC, nil
}

func (d *device) CaptureInto(_ context.Context, dataC chan DataPacket) error {
	if dataC == nil {
		return errors.New("data channel is nil. unable to allocate device")
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.CaptureChannels) //nolint:gosec // small positive
	devCnf.SampleRate = uint32(d.conf.SampleRate)            //nolint:gosec // small positive

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the buffer between callbacks.
			_ = channels.TrySend(dataC, DataPacket(append([]byte(nil), samples...)))
		},
	}

	if err := d.alloc(devCnf, callbacks); err != nil {
		return fmt.Errorf("failed to create malgo capture device: %w", err)
	}

	return nil
}

func (d *device) Play(ctx context.Context, r io.Reader) error {
	devCnf := malgo.DefaultDeviceConfig(malgo.Playback)
	devCnf.Playback.Format = d.conf.Format
	devCnf.Playback.Channels = uint32(d.conf.PlaybackChannels) //nolint:gosec // small positive
	devCnf.SampleRate = uint32(d.conf.SampleRate)              //nolint:gosec // small positive

	drained := make(chan struct{})
	var once sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n, err := io.ReadFull(r, out)
			clear(out[n:])

			if err != nil {
				once.Do(func() { close(drained) })
			}
		},
	}

	if err := d.alloc(devCnf, callbacks); err != nil {
		return fmt.Errorf("failed to create malgo playback device: %w", err)
	}
	defer d.Dealloc(ctx)

	if err := d.Start(ctx); err != nil {
		return err
	}

	select {
	case <-drained:
	case <-ctx.Done():
	}

	if err := d.Stop(ctx); err != nil {
		return err
	}

	return ctx.Err()
}

func (d *device) Start(_ context.Context) error {
	if d.mgDevice == nil {
		return errors.New("device nil. have you allocated and Capture()ed it?")
	}

	if d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop(_ context.Context) error {
	if d.mgDevice == nil {
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) Dealloc(_ context.Context) {
	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

func (d *device) IsStarted() bool {
	if d.mgDevice == nil {
		return false
	}

	return d.mgDevice.IsStarted()
}

func (d *device) alloc(devCnf malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) error {
	if d.mgDevice != nil {
		return errors.New("device already allocated")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	return nil
}

type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

func malgoDeviceInfoToDeviceInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, len(mdi.Formats))
	for i, mf := range mdi.Formats {
		formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
			malgo.SampleSizeInBytes(mf.Format),
			mf.Channels, mf.SampleRate)
	}
	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}

type DataPacket = []byte

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}

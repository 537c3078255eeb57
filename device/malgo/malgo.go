// SPDX-License-Identifier: EPL-2.0

package malgo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/ik5/audcap/capture"
	"github.com/ik5/audcap/device"
)

var ErrUnknownDevice = errors.New("unknown capture device")

// Every capture device accepts this range; miniaudio converts from the
// hardware rate internally.
const (
	MinRate       = 8000
	MaxRate       = 384000
	PreferredRate = 48000
)

// Device captures from sound cards through miniaudio. Device ids are the
// names miniaudio reports.
type Device struct {
	ctx      *malgo.AllocatedContext
	channels int
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*malgo.Device

	streams *device.Streams
}

type Option func(*options)

type options struct {
	backends []malgo.Backend
	channels int
	logger   *slog.Logger
}

// WithBackends restricts miniaudio to the given backends. By default it
// picks the platform's preferred one.
func WithBackends(b ...malgo.Backend) Option {
	return func(o *options) { o.backends = b }
}

// WithChannels sets the captured channel count. Default 1.
func WithChannels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.channels = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New initializes a miniaudio context. Close releases it.
func New(opts ...Option) (*Device, error) {
	o := options{channels: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, err := malgo.InitContext(o.backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	return &Device{
		ctx:      ctx,
		channels: o.channels,
		logger:   o.logger.With("component", "malgo"),
		active:   make(map[string]*malgo.Device),
		streams:  device.NewStreams(),
	}, nil
}

// Close stops every active capture and releases the miniaudio context.
func (d *Device) Close() error {
	for _, id := range d.streams.Active() {
		if err := d.EndCapture(id); err != nil {
			d.logger.Warn("failed to end capture on close", "device", id, "error", err)
		}
	}

	if err := d.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	d.ctx.Free()
	return nil
}

func (d *Device) ListDevices(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}

	ids := make([]string, 0, len(infos))
	for i := range infos {
		name := infos[i].Name()
		// the null backend's sink is never a real input
		if strings.Contains(name, "Discard all samples") {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

func (d *Device) Capabilities(id string) (capture.Capabilities, error) {
	if _, err := d.find(id); err != nil {
		return capture.Capabilities{}, err
	}

	return capture.Capabilities{
		MinRate:       MinRate,
		MaxRate:       MaxRate,
		PreferredRate: PreferredRate,
		Channels:      d.channels,
	}, nil
}

func (d *Device) StartCapture(id string, sampleRate, capacity int) (capture.Stream, error) {
	info, err := d.find(id)
	if err != nil {
		return capture.Stream{}, err
	}

	ring, err := d.streams.Open(id, capacity, d.channels)
	if err != nil {
		return capture.Stream{}, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(d.channels)
	cfg.Capture.DeviceID = info.ID.Pointer()
	cfg.SampleRate = uint32(sampleRate)

	w := newRingWriter(ring)
	dev, err := malgo.InitDevice(d.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: w.onData,
		Stop: func() { d.logger.Warn("capture device stopped", "device", id) },
	})
	if err != nil {
		_, _ = d.streams.Close(id)
		return capture.Stream{}, fmt.Errorf("initializing capture device %q: %w", id, err)
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_, _ = d.streams.Close(id)
		return capture.Stream{}, fmt.Errorf("starting capture device %q: %w", id, err)
	}

	d.mu.Lock()
	d.active[id] = dev
	d.mu.Unlock()

	rate := int(dev.SampleRate())
	if rate == 0 {
		rate = sampleRate
	}

	d.logger.Info("capture device started", "device", id, "rate", rate, "channels", d.channels, "capacity", capacity)

	return capture.Stream{SampleRate: rate, Channels: d.channels, Capacity: capacity}, nil
}

func (d *Device) Position(id string) (int, error) {
	return d.streams.Position(id)
}

func (d *Device) ReadSamples(id string, offset int, dst []float32) error {
	return d.streams.ReadSamples(id, offset, dst)
}

func (d *Device) EndCapture(id string) error {
	d.mu.Lock()
	dev := d.active[id]
	delete(d.active, id)
	d.mu.Unlock()

	if dev != nil {
		// Uninit stops the device and waits for the callback to return
		dev.Uninit()
	}

	_, err := d.streams.Close(id)
	return err
}

func (d *Device) find(id string) (*malgo.DeviceInfo, error) {
	infos, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}

	for i := range infos {
		if infos[i].Name() == id {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}

// ringWriter copies miniaudio's float32 callbacks into a ring. miniaudio
// never runs the callback concurrently for one device, so the scratch
// buffer is not locked.
type ringWriter struct {
	ring    *device.Ring
	scratch []float32
}

func newRingWriter(ring *device.Ring) *ringWriter {
	return &ringWriter{ring: ring}
}

func (w *ringWriter) onData(_, input []byte, frameCount uint32) {
	n := min(int(frameCount)*w.ring.Channels(), len(input)/4)
	if cap(w.scratch) < n {
		w.scratch = make([]float32, n)
	}
	w.scratch = w.scratch[:n]

	for i := range n {
		w.scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[4*i:]))
	}
	w.ring.Write(w.scratch)
}

// SPDX-License-Identifier: EPL-2.0

package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/capture"
	"github.com/ik5/audcap/device"
)

// Device is a capture.Device whose inputs are audio files. Starting a
// capture decodes the file, resamples it to the requested rate and writes
// it into a ring at real-time pace. Once the file ends the ring keeps
// advancing with silence, like a microphone in a quiet room.
type Device struct {
	fs       afero.Fs
	registry *audio.Registry
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	files   map[string]string
	dir     string
	players map[string]*player

	streams *device.Streams
}

type Option func(*Device)

func WithFs(fs afero.Fs) Option {
	return func(d *Device) { d.fs = fs }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithFile exposes path as device id.
func WithFile(id, path string) Option {
	return func(d *Device) { d.files[id] = path }
}

// WithDir exposes every decodable file in dir, named by its base name.
func WithDir(dir string) Option {
	return func(d *Device) { d.dir = dir }
}

// WithInterval sets how often the ring is fed. Default 20ms.
func WithInterval(interval time.Duration) Option {
	return func(d *Device) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func New(registry *audio.Registry, opts ...Option) *Device {
	d := &Device{
		fs:       afero.NewOsFs(),
		registry: registry,
		logger:   slog.Default(),
		interval: 20 * time.Millisecond,
		files:    make(map[string]string),
		players:  make(map[string]*player),
		streams:  device.NewStreams(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "replay")
	return d
}

// Replay accepts any rate in this range and resamples to it.
const (
	MinRate = 8000
	MaxRate = 384000
)

func (d *Device) ListDevices(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	ids := make([]string, 0, len(d.files))
	for id := range d.files {
		ids = append(ids, id)
	}
	dir := d.dir
	d.mu.Unlock()

	if dir != "" {
		entries, err := afero.ReadDir(d.fs, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !d.decodable(e.Name()) {
				continue
			}
			ids = append(ids, e.Name())
		}
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (d *Device) Capabilities(id string) (capture.Capabilities, error) {
	src, closeFile, err := d.open(id)
	if err != nil {
		return capture.Capabilities{}, err
	}
	defer closeFile()
	defer src.Close()

	return capture.Capabilities{
		MinRate:       MinRate,
		MaxRate:       MaxRate,
		PreferredRate: src.SampleRate(),
		Channels:      src.Channels(),
	}, nil
}

func (d *Device) StartCapture(id string, sampleRate, capacity int) (capture.Stream, error) {
	if sampleRate <= 0 {
		return capture.Stream{}, fmt.Errorf("%w: %d", audio.ErrInvalidRate, sampleRate)
	}

	src, closeFile, err := d.open(id)
	if err != nil {
		return capture.Stream{}, err
	}

	var stream audio.Source = src
	if src.SampleRate() != sampleRate {
		stream = audio.NewResampler(src, sampleRate)
	}

	ring, err := d.streams.Open(id, capacity, src.Channels())
	if err != nil {
		stream.Close()
		closeFile()
		return capture.Stream{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &player{
		src:       stream,
		closeFile: closeFile,
		ring:      ring,
		rate:      sampleRate,
		cancel:    cancel,
		done:      make(chan struct{}),
		logger:    d.logger.With("device", id),
	}

	d.mu.Lock()
	d.players[id] = p
	d.mu.Unlock()

	go p.run(ctx, d.interval)

	d.logger.Info("replay started", "device", id, "rate", sampleRate, "channels", ring.Channels(), "capacity", capacity)

	return capture.Stream{
		SampleRate: sampleRate,
		Channels:   ring.Channels(),
		Capacity:   ring.Capacity(),
	}, nil
}

func (d *Device) Position(id string) (int, error) {
	return d.streams.Position(id)
}

func (d *Device) ReadSamples(id string, offset int, dst []float32) error {
	return d.streams.ReadSamples(id, offset, dst)
}

func (d *Device) EndCapture(id string) error {
	if _, err := d.streams.Close(id); err != nil {
		return err
	}

	d.mu.Lock()
	p := d.players[id]
	delete(d.players, id)
	d.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.stop()
}

func (d *Device) path(id string) (string, error) {
	d.mu.Lock()
	path, ok := d.files[id]
	dir := d.dir
	d.mu.Unlock()

	if ok {
		return path, nil
	}
	if dir != "" && filepath.Base(id) == id {
		path = filepath.Join(dir, id)
		if exists, _ := afero.Exists(d.fs, path); exists {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}

func (d *Device) decodable(name string) bool {
	_, ok := d.registry.ForPath(name)
	return ok
}

// open decodes the file behind id. The returned func closes the file and
// must be called after the source is closed.
func (d *Device) open(id string) (audio.Source, func(), error) {
	path, err := d.path(id)
	if err != nil {
		return nil, nil, err
	}

	dec, ok := d.registry.ForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNoDecoder, path)
	}

	f, err := d.fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	closeFile := func() { _ = f.Close() }

	src, err := dec.Decode(f)
	if err != nil {
		closeFile()
		return nil, nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	if src.Channels() <= 0 {
		src.Close()
		closeFile()
		return nil, nil, fmt.Errorf("%w: %q has %d channels", audio.ErrInvalidChannels, path, src.Channels())
	}

	return src, closeFile, nil
}

// player feeds one ring from one source.
type player struct {
	src       audio.Source
	closeFile func()
	ring      *device.Ring
	rate      int
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *slog.Logger

	buf  []float32
	eof  bool
	owed float64
}

func (p *player) run(ctx context.Context, interval time.Duration) {
	defer close(p.done)

	t := time.NewTicker(interval)
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			p.owed += now.Sub(last).Seconds() * float64(p.rate)
			last = now

			frames := int(p.owed)
			p.owed -= float64(frames)
			p.step(frames)
		}
	}
}

// step writes frames frames into the ring, decoded audio first and
// silence once the source is exhausted.
func (p *player) step(frames int) {
	ch := p.ring.Channels()

	for frames > 0 && !p.eof {
		want := min(frames, p.ring.Capacity()) * ch
		if cap(p.buf) < want {
			p.buf = make([]float32, want)
		}

		n, err := p.src.ReadSamples(p.buf[:want])
		frames -= p.ring.Write(p.buf[:n])

		if err != nil {
			p.eof = true
			if !errors.Is(err, io.EOF) {
				p.logger.Error("replay source failed, continuing with silence", "error", err)
			}
			break
		}
		if n == 0 {
			// a source with nothing ready this tick
			break
		}
	}

	if p.eof {
		p.ring.WriteSilence(frames)
	}
}

func (p *player) stop() error {
	p.cancel()
	<-p.done

	err := p.src.Close()
	p.closeFile()
	return err
}

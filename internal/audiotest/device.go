// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ik5/audcap/capture"
)

var ErrUnknownDevice = errors.New("unknown fake device")

// Read records one ReadSamples call on a FakeDevice.
type Read struct {
	Offset int
	Frames int
}

// FakeDevice is a capture.Device with a scripted write position. Every
// Position call returns the next scripted value; once the script is
// exhausted the last value repeats.
//
// Ring contents are synthetic: the sample for frame f and channel c is
// Fill(f, c), so tests can tell which ring range a sample came from.
type FakeDevice struct {
	mu sync.Mutex

	ids  []string
	caps capture.Capabilities

	// Fill generates ring contents. Defaults to RampFill for the ring
	// capacity.
	Fill func(frame, channel int) float32

	script    []int
	calls     int
	failAt    map[int]error
	panicAt   int
	listDelay int
	listCalls int

	startErr error
	readErr  error

	stream  capture.Stream
	active  bool
	started int
	ended   int
	reads   []Read
}

func NewFakeDevice(caps capture.Capabilities, ids ...string) *FakeDevice {
	if len(ids) == 0 {
		ids = []string{"fake"}
	}
	return &FakeDevice{
		ids:    ids,
		caps:   caps,
		failAt: make(map[int]error),
	}
}

// RampFill returns a Fill function producing frame/capacity on every
// channel, offset by 0.001 per channel.
func RampFill(capacity int) func(frame, channel int) float32 {
	return func(frame, channel int) float32 {
		return float32(frame)/float32(capacity) + float32(channel)*0.001
	}
}

// Script sets the positions returned by successive Position calls.
func (d *FakeDevice) Script(positions ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.script = append(d.script[:0], positions...)
	d.calls = 0
}

// FailPositionAt makes the n-th Position call (1-based) return err.
func (d *FakeDevice) FailPositionAt(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failAt[n] = err
}

// PanicPositionAt makes the n-th Position call (1-based) panic.
func (d *FakeDevice) PanicPositionAt(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.panicAt = n
}

// HideDevicesFor makes the first n ListDevices calls report no devices.
func (d *FakeDevice) HideDevicesFor(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listDelay = n
}

func (d *FakeDevice) FailStart(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.startErr = err
}

func (d *FakeDevice) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.readErr = err
}

func (d *FakeDevice) ListDevices(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.listCalls++
	if d.listCalls <= d.listDelay {
		return nil, nil
	}
	return append([]string(nil), d.ids...), nil
}

func (d *FakeDevice) Capabilities(id string) (capture.Capabilities, error) {
	if !d.known(id) {
		return capture.Capabilities{}, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}
	return d.caps, nil
}

func (d *FakeDevice) StartCapture(id string, sampleRate, capacity int) (capture.Stream, error) {
	if !d.known(id) {
		return capture.Stream{}, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startErr != nil {
		return capture.Stream{}, d.startErr
	}

	channels := max(d.caps.Channels, 1)
	d.stream = capture.Stream{SampleRate: sampleRate, Channels: channels, Capacity: capacity}
	d.active = true
	d.started++
	if d.Fill == nil {
		d.Fill = RampFill(capacity)
	}

	return d.stream, nil
}

func (d *FakeDevice) Position(id string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.calls == d.panicAt {
		panic("fake device position panic")
	}
	if err, ok := d.failAt[d.calls]; ok {
		return 0, err
	}
	if len(d.script) == 0 {
		return 0, nil
	}
	return d.script[min(d.calls, len(d.script))-1], nil
}

func (d *FakeDevice) ReadSamples(id string, offset int, dst []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return d.readErr
	}
	if !d.active {
		return fmt.Errorf("%w: %q not capturing", ErrUnknownDevice, id)
	}

	ch := d.stream.Channels
	frames := len(dst) / ch
	if offset < 0 || offset+frames > d.stream.Capacity {
		return fmt.Errorf("read [%d, %d) outside ring of %d frames", offset, offset+frames, d.stream.Capacity)
	}

	for f := range frames {
		for c := range ch {
			dst[f*ch+c] = d.Fill(offset+f, c)
		}
	}
	d.reads = append(d.reads, Read{Offset: offset, Frames: frames})

	return nil
}

func (d *FakeDevice) EndCapture(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active = false
	d.ended++
	return nil
}

// Reads returns the ReadSamples calls seen so far.
func (d *FakeDevice) Reads() []Read {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Read(nil), d.reads...)
}

func (d *FakeDevice) StartCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

func (d *FakeDevice) EndCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ended
}

func (d *FakeDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.active
}

func (d *FakeDevice) known(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, v := range d.ids {
		if v == id {
			return true
		}
	}
	return false
}

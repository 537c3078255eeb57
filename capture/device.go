// SPDX-License-Identifier: EPL-2.0

package capture

import "context"

// Capabilities describes the rates and channel layout a device can capture.
type Capabilities struct {
	MinRate       int
	MaxRate       int
	PreferredRate int
	Channels      int
}

// ClampRate limits rate to [MinRate, MaxRate]. Bounds that are zero are
// not enforced.
func (c Capabilities) ClampRate(rate int) int {
	if c.MinRate > 0 && rate < c.MinRate {
		return c.MinRate
	}
	if c.MaxRate > 0 && rate > c.MaxRate {
		return c.MaxRate
	}
	return rate
}

// Stream is the layout of an acquired capture ring.
type Stream struct {
	SampleRate int
	Channels   int
	Capacity   int // ring size in frames
}

// Device is a capture source that writes interleaved float32 frames into a
// fixed-size circular buffer and exposes its write position.
//
// Position returns the frame index the device will write next, modulo
// Capacity. ReadSamples copies len(dst)/Channels frames starting at frame
// offset; callers never ask for a range that crosses the end of the ring.
type Device interface {
	ListDevices(ctx context.Context) ([]string, error)
	Capabilities(id string) (Capabilities, error)
	StartCapture(id string, sampleRate, capacity int) (Stream, error)
	Position(id string) (int, error)
	ReadSamples(id string, offset int, dst []float32) error
	EndCapture(id string) error
}

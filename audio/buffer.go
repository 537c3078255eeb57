// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"slices"
	"time"
)

// Buffer is a block of interleaved samples with its stream metadata.
type Buffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (samples per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a copy that shares no storage with b.
func (b Buffer) Clone() Buffer {
	b.Samples = slices.Clone(b.Samples)
	return b
}

// Resample converts b to outRate with the linear interpolation contract of
// Resample, applied per channel.
func (b Buffer) Resample(outRate int) (Buffer, error) {
	if b.SampleRate <= 0 || outRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, b.SampleRate, outRate)
	}
	if b.Channels <= 0 {
		return Buffer{}, fmt.Errorf("%w: %d", ErrInvalidChannels, b.Channels)
	}
	if b.SampleRate == outRate {
		return b, nil
	}

	out := resampleFrames(nil, b.Samples[:b.Frames()*b.Channels], b.Channels, b.SampleRate, outRate)
	return Buffer{Samples: out, Channels: b.Channels, SampleRate: outRate}, nil
}

// NewBufferSource exposes b as a Source. The source reads b.Samples in place.
func NewBufferSource(b Buffer) Source {
	return &bufferSource{buf: b}
}

type bufferSource struct {
	buf Buffer
	off int
}

func (s *bufferSource) SampleRate() int { return s.buf.SampleRate }
func (s *bufferSource) Channels() int   { return s.buf.Channels }
func (s *bufferSource) Close() error    { return nil }

func (s *bufferSource) ReadSamples(dst []float32) (int, error) {
	if s.off >= len(s.buf.Samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.buf.Samples[s.off:])
	s.off += n
	if s.off >= len(s.buf.Samples) {
		return n, io.EOF
	}
	return n, nil
}

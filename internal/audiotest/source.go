// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"math"
)

// Wave gives the value of one sample.
type Wave func(frame, channel int) float32

// Silence is a Wave of zeros.
func Silence(int, int) float32 { return 0 }

// Level is a Wave holding v on every channel.
func Level(v float32) Wave {
	return func(int, int) float32 { return v }
}

// Sine is a full-scale tone of hz at rate, identical on every channel.
func Sine(rate int, hz float64) Wave {
	step := 2 * math.Pi * hz / float64(rate)
	return func(frame, _ int) float32 {
		return float32(math.Sin(step * float64(frame)))
	}
}

// Source is an audio.Source that synthesizes a fixed number of frames.
type Source struct {
	rate     int
	channels int
	frames   int
	wave     Wave

	pos    int
	closed bool
}

func NewSource(rate, channels, frames int, wave Wave) *Source {
	return &Source{rate: rate, channels: channels, frames: frames, wave: wave}
}

func (s *Source) SampleRate() int { return s.rate }
func (s *Source) Channels() int   { return s.channels }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

// Rewind starts the source over from frame zero.
func (s *Source) Rewind() {
	s.pos = 0
	s.closed = false
}

// ReadSamples fills whole frames only; the final read carries io.EOF.
func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.channels <= 0 || s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.wave(s.pos+f, c)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

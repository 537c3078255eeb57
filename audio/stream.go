// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/audcap/utils"
)

// LinearStream resamples a stream that arrives in chunks. It keeps the
// last frame of the previous chunk and global frame counters, so the
// concatenated output of Process calls followed by Flush is identical to
// Resample over the concatenated input.
//
// Process only emits frames whose right neighbour has already arrived;
// Flush emits the trailing frames that repeat the final input frame.
type LinearStream struct {
	inRate   int64
	outRate  int64
	channels int

	consumed int64 // input frames seen before the current chunk
	produced int64 // output frames emitted

	prev    []float32
	hasPrev bool
}

func NewLinearStream(inRate, outRate, channels int) (*LinearStream, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	return &LinearStream{
		inRate:   int64(inRate),
		outRate:  int64(outRate),
		channels: channels,
		prev:     make([]float32, channels),
	}, nil
}

func (s *LinearStream) Channels() int { return s.channels }

// Process appends the output for chunk (interleaved frames) to dst.
// A trailing partial frame in chunk is ignored.
func (s *LinearStream) Process(dst, chunk []float32) []float32 {
	ch := s.channels
	n := int64(len(chunk) / ch)
	if n == 0 {
		return dst
	}

	if s.inRate == s.outRate {
		dst = append(dst, chunk[:n*int64(ch)]...)
	} else {
		total := s.consumed + n
		// last output whose source position is <= total-1
		target := ((total-1)*s.outRate)/s.inRate + 1

		for ; s.produced < target; s.produced++ {
			num := s.produced * s.inRate
			left := num/s.outRate - s.consumed
			frac := float32(num%s.outRate) / float32(s.outRate)

			for c := range ch {
				dst = append(dst, utils.LinearInterpolate(s.at(chunk, n, left, c), s.at(chunk, n, left+1, c), frac))
			}
		}
	}

	copy(s.prev, chunk[(n-1)*int64(ch):n*int64(ch)])
	s.hasPrev = true
	s.consumed += n
	if s.inRate == s.outRate {
		s.produced = s.consumed
	}

	return dst
}

// Flush appends the remaining frames up to round(consumed*outRate/inRate).
// When downsampling by more than 2:1 the stream may already have emitted
// one frame past that length; Flush then adds nothing.
func (s *LinearStream) Flush(dst []float32) []float32 {
	if !s.hasPrev {
		return dst
	}

	target := int64(ResampledLength(int(s.consumed), int(s.inRate), int(s.outRate)))
	for ; s.produced < target; s.produced++ {
		dst = append(dst, s.prev...)
	}
	return dst
}

// Reset forgets all stream history.
func (s *LinearStream) Reset() {
	s.consumed = 0
	s.produced = 0
	s.hasPrev = false
	clear(s.prev)
}

// at returns sample c of frame k relative to the chunk start; -1 is the
// last frame of the previous chunk and frames past the end clamp to the
// chunk's last frame.
func (s *LinearStream) at(chunk []float32, n, k int64, c int) float32 {
	switch {
	case k < 0:
		return s.prev[c]
	case k >= n:
		return chunk[(n-1)*int64(s.channels)+int64(c)]
	default:
		return chunk[k*int64(s.channels)+int64(c)]
	}
}

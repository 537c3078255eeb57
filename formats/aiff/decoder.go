// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/pcm"
	"github.com/ik5/audcap/utils"
)

// pcmReader is the part of aiff.Decoder the source uses.
type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        pcmReader
	sampleRate int
	channels   int
	depth      pcm.Format
	toFloat    func(int) float32

	ints *goaudio.IntBuffer
}

func newSource(dec pcmReader, rate, channels int, depth pcm.Format) *source {
	return &source{
		dec:        dec,
		sampleRate: rate,
		channels:   channels,
		depth:      depth,
		toFloat:    converter(depth),
	}
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

// ReadSamples returns whole frames. A short read from the decoder marks
// the end of the sound data.
func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	if s.ints == nil {
		s.ints = &goaudio.IntBuffer{Format: s.dec.Format(), SourceBitDepth: s.depth.BitDepth()}
	}
	if cap(s.ints.Data) < want {
		s.ints.Data = make([]int, want)
	}
	s.ints.Data = s.ints.Data[:want]

	n, err := s.dec.PCMBuffer(s.ints)
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		return 0, fmt.Errorf("%w: %w", ErrUnsupportedAiffChunks, err)
	case n < want:
		err = io.EOF
	}

	n -= n % s.channels
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.ints.Data[:n] {
		dst[i] = s.toFloat(v)
	}
	return n, err
}

// converter maps signed AIFF sample values of the given depth to [-1, 1].
// Unlike WAV, 8-bit AIFF data is signed.
func converter(depth pcm.Format) func(int) float32 {
	switch depth {
	case pcm.Bits8:
		return func(v int) float32 { return float32(float64(v) / utils.MaxInt8Scale) }
	case pcm.Bits24:
		return func(v int) float32 { return utils.Int24ToFloat32(int32(v)) }
	case pcm.Bits32:
		return func(v int) float32 { return utils.Int32ToFloat32(int32(v)) }
	default:
		return func(v int) float32 { return utils.Int16ToFloat32(int16(v)) }
	}
}

type Decoder struct{}

// Decode reads the COMM chunk and returns a source positioned at the
// sound data. go-audio needs to seek, so other readers are buffered in
// memory first.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read AIFF data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	depth, err := pcm.ParseBitDepth(int(dec.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}

	f := dec.Format()
	if f == nil || f.NumChannels <= 0 || f.SampleRate <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	return newSource(dec, f.SampleRate, f.NumChannels, depth), nil
}

// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/pcm"
)

// go-mp3 always produces 16-bit little-endian stereo.
const channels = 2

// mp3Reader is the part of *gomp3.Decoder the source reads through.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	channels   int
	buf        []byte

	// bytes of a frame split across two decoder reads
	pending []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

// ReadSamples fills dst with whole frames only.
func (s *source) ReadSamples(dst []float32) (int, error) {
	frameBytes := s.channels * pcm.Bits16.Stride()
	want := (len(dst) / s.channels) * frameBytes
	if want == 0 {
		return 0, nil
	}

	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	have := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(s.buf[have:])
	n += have

	whole := n - n%frameBytes
	s.pending = append(s.pending, s.buf[whole:n]...)
	if whole == 0 {
		return 0, err
	}

	out, decErr := pcm.DecodeInto(dst[:0], s.buf[:whole], pcm.Bits16)
	if decErr != nil {
		return 0, decErr
	}

	return len(out), err
}

// Decoder opens MPEG-1/2 Layer III streams. Mono files come out as two
// identical channels, as go-mp3 delivers them.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   channels,
		buf:        make([]byte, 8192),
	}, nil
}

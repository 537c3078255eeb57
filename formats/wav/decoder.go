// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/pcm"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	format     pcm.Format

	buf []byte
	eof bool
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }

// Format is the PCM bit depth of the data chunk.
func (s *wavSource) Format() pcm.Format { return s.format }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}

	if len(dst) == 0 {
		return 0, nil
	}

	// whole frames only
	frames := len(dst) / s.channels
	if frames == 0 {
		return 0, audio.ErrInvalidDstSize
	}

	stride := s.format.Stride()
	want := frames * s.channels * stride
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		s.eof = true
	default:
		return 0, fmt.Errorf("failed to read WAV data: %w", err)
	}

	// drop a trailing partial frame
	n -= n % (s.channels * stride)
	if n == 0 {
		s.eof = true
		return 0, io.EOF
	}

	out, err := pcm.DecodeInto(dst, s.buf[:n], s.format)
	if err != nil {
		return 0, err
	}

	if s.eof {
		return len(out), io.EOF
	}
	return len(out), nil
}

type Decoder struct{}

// Decode parses the RIFF header and walks the chunk list up to the data
// chunk. Chunks other than "fmt " and "data" are skipped. PCM data at 8,
// 16, 24 or 32 bits is supported, including WAVE_FORMAT_EXTENSIBLE
// files with a PCM sub-format.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(r, riff); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}

	if !bytes.Equal(riff[:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	var (
		src     *wavSource
		haveFmt bool
		chunk   = make([]byte, 8)
	)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("%w: no data chunk: %w", ErrUnsupportedWavChunks, err)
		}

		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrUnsupportedWavLayout, size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}

			var err error
			src, err = parseFmt(body[:size])
			if err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data before fmt", ErrUnsupportedWavChunks)
			}
			src.r = io.LimitReader(r, size)
			return src, nil

		default:
			// chunks are word aligned
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

func parseFmt(body []byte) (*wavSource, error) {
	audioFormat := binary.LittleEndian.Uint16(body[0:2])
	channels := int(binary.LittleEndian.Uint16(body[2:4]))
	sampleRate := int(binary.LittleEndian.Uint32(body[4:8]))
	bitsPerSample := int(binary.LittleEndian.Uint16(body[14:16]))

	if audioFormat == formatExtensible {
		// cbSize(2) validBits(2) channelMask(4) subFormat GUID(16)
		if len(body) < 40 {
			return nil, fmt.Errorf("%w: short extensible fmt chunk", ErrUnsupportedWavLayout)
		}
		audioFormat = binary.LittleEndian.Uint16(body[24:26])
	}

	if audioFormat != formatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, audioFormat)
	}

	f, err := pcm.ParseBitDepth(bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedFormat, bitsPerSample)
	}

	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWavLayout, channels, sampleRate)
	}

	return &wavSource{
		sampleRate: sampleRate,
		channels:   channels,
		format:     f,
		buf:        make([]byte, 4096),
	}, nil
}

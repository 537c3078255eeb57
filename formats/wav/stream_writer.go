// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/audcap/pcm"
)

// StreamWriter writes a WAV file incrementally. Sizes in the header are
// patched on Close, so w must be seekable.
type StreamWriter struct {
	enc    *gowav.Encoder
	format pcm.Format
	buf    *goaudio.IntBuffer
	frames int
	closed bool
}

func NewStreamWriter(w io.WriteSeeker, sampleRate, channels int, f pcm.Format) (*StreamWriter, error) {
	if err := checkLayout(sampleRate, channels, f); err != nil {
		return nil, err
	}

	return &StreamWriter{
		enc:    gowav.NewEncoder(w, sampleRate, f.BitDepth(), channels, formatPCM),
		format: f,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: f.BitDepth(),
		},
	}, nil
}

// Write quantizes and appends interleaved samples.
func (s *StreamWriter) Write(samples []float32) error {
	if s.closed {
		return ErrWriterClosed
	}
	if len(samples) == 0 {
		return nil
	}

	var err error
	s.buf.Data, err = pcm.AppendQuantized(s.buf.Data[:0], samples, s.format)
	if err != nil {
		return err
	}

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("failed to write WAV frames: %w", err)
	}
	s.frames += len(samples) / s.buf.Format.NumChannels

	return nil
}

// WritePCM appends already encoded PCM bytes in the writer's format.
func (s *StreamWriter) WritePCM(data []byte) error {
	if s.closed {
		return ErrWriterClosed
	}

	values, err := pcm.DecodeInts(data, s.format)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	s.buf.Data = values
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("failed to write WAV frames: %w", err)
	}
	s.frames += len(values) / s.buf.Format.NumChannels

	return nil
}

// Frames is the number of frames written so far.
func (s *StreamWriter) Frames() int { return s.frames }

func (s *StreamWriter) Duration() time.Duration {
	return time.Duration(s.frames) * time.Second / time.Duration(s.buf.Format.SampleRate)
}

// Close finalizes the header. It does not close the underlying writer.
func (s *StreamWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.frames == 0 {
		// the encoder emits its header with the first write
		s.buf.Data = s.buf.Data[:0]
		if err := s.enc.Write(s.buf); err != nil {
			return fmt.Errorf("failed to write WAV header: %w", err)
		}
	}

	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Resampler streams from src to a target sample rate using linear
// interpolation. Works on interleaved samples; preserves channel count.
// The output matches Buffer.Resample over the whole source, apart from the
// extra trailing frame LinearStream may emit when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	channels int

	stream *LinearStream
	err    error

	// Buffer for reading from source
	srcBuf []float32
	eof    bool

	// Resampled frames not yet handed out
	pending []float32
	off     int
	flushed bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		channels: channels,
		srcBuf:   make([]float32, 4096-4096%max(channels, 1)),
	}

	r.stream, r.err = NewLinearStream(src.SampleRate(), dstRate, channels)
	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("failed to close source: %w", err)
	}

	return nil
}

func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	written := 0
	for written < len(dst) {
		if r.off < len(r.pending) {
			n := copy(dst[written:], r.pending[r.off:])
			r.off += n
			written += n
			continue
		}
		if r.flushed {
			break
		}

		r.pending = r.pending[:0]
		r.off = 0

		if r.eof {
			r.pending = r.stream.Flush(r.pending)
			r.flushed = true
			continue
		}

		n, err := r.src.ReadSamples(r.srcBuf)
		if n > 0 {
			r.pending = r.stream.Process(r.pending, r.srcBuf[:n])
		}
		if err == io.EOF {
			r.eof = true
			continue
		}
		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
		if n == 0 {
			// source made no progress; let the caller retry
			break
		}
	}

	if r.flushed && r.off >= len(r.pending) {
		return written, io.EOF
	}

	return written, nil
}

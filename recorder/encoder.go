// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/capture"
	"github.com/ik5/audcap/formats/wav"
	"github.com/ik5/audcap/pcm"
)

// FrameSink is a capture.Sink with an end. Finish completes the output
// but does not close the writer underneath.
type FrameSink interface {
	capture.Sink
	Finish() error
}

// SessionEncoder turns a recording into one output codec, either as a
// whole in memory or frame by frame on disk.
type SessionEncoder interface {
	Name() string
	Memory(buf audio.Buffer, f pcm.Format, opts pcm.EncodeOptions) ([]byte, error)
	Disk(w io.WriteSeeker, sampleRate, channels int, f pcm.Format) (FrameSink, error)
}

// PCMEncoder produces headerless little-endian PCM.
type PCMEncoder struct{}

func (PCMEncoder) Name() string { return "pcm" }

func (PCMEncoder) Memory(buf audio.Buffer, f pcm.Format, opts pcm.EncodeOptions) ([]byte, error) {
	samples, err := trimmed(buf, opts)
	if err != nil {
		return nil, err
	}
	return pcm.Encode(samples, f)
}

func (PCMEncoder) Disk(w io.WriteSeeker, _, _ int, f pcm.Format) (FrameSink, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", pcm.ErrInvalidFormat, int(f))
	}
	return &rawSink{w: w}, nil
}

type rawSink struct {
	w io.Writer
}

func (s *rawSink) WriteFrame(_ context.Context, f capture.Frame) error {
	_, err := s.w.Write(f)
	return err
}

func (s *rawSink) Finish() error { return nil }

// WAVEncoder produces a RIFF/WAVE file.
type WAVEncoder struct{}

func (WAVEncoder) Name() string { return "wav" }

func (WAVEncoder) Memory(buf audio.Buffer, f pcm.Format, opts pcm.EncodeOptions) ([]byte, error) {
	samples, err := trimmed(buf, opts)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(wav.HeaderSize + len(samples)*f.Stride())
	if err := wav.WriteWAV(&out, buf.SampleRate, buf.Channels, f, samples); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (WAVEncoder) Disk(w io.WriteSeeker, sampleRate, channels int, f pcm.Format) (FrameSink, error) {
	sw, err := wav.NewStreamWriter(w, sampleRate, channels, f)
	if err != nil {
		return nil, err
	}
	return &wavSink{w: sw}, nil
}

type wavSink struct {
	w *wav.StreamWriter
}

func (s *wavSink) WriteFrame(_ context.Context, f capture.Frame) error {
	return s.w.WritePCM(f)
}

func (s *wavSink) Finish() error { return s.w.Close() }

// trimmed drops leading and trailing silence on whole-frame boundaries. A
// buffer that is all silence fails with pcm.ErrEmptyTrim.
func trimmed(buf audio.Buffer, opts pcm.EncodeOptions) ([]float32, error) {
	if !opts.Trim || buf.Channels <= 0 {
		return buf.Samples, nil
	}

	start, end, err := pcm.TrimSilence(buf.Samples, opts.SilenceThreshold)
	if err != nil {
		return nil, err
	}

	ch := buf.Channels
	start -= start % ch
	end = min(end+(ch-end%ch)%ch, len(buf.Samples))
	return buf.Samples[start:end], nil
}

// EncoderRegistry resolves codec names to encoders. Each encoder is built
// once and reused for every later session.
type EncoderRegistry struct {
	mtx       sync.Mutex
	factories map[string]func() SessionEncoder
	cache     map[string]SessionEncoder
}

// NewEncoderRegistry returns a registry with the pcm and wav encoders.
func NewEncoderRegistry() *EncoderRegistry {
	r := &EncoderRegistry{
		factories: make(map[string]func() SessionEncoder),
		cache:     make(map[string]SessionEncoder),
	}
	r.Register("pcm", func() SessionEncoder { return PCMEncoder{} })
	r.Register("wav", func() SessionEncoder { return WAVEncoder{} })
	return r
}

// Register adds or replaces the factory for name and drops any cached
// encoder built from the old one.
func (r *EncoderRegistry) Register(name string, factory func() SessionEncoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.factories[name] = factory
	delete(r.cache, name)
}

func (r *EncoderRegistry) Resolve(name string) (SessionEncoder, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if enc, ok := r.cache[name]; ok {
		return enc, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	enc := factory()
	r.cache[name] = enc
	return enc, nil
}

func (r *EncoderRegistry) Names() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

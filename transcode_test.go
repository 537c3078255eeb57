// SPDX-License-Identifier: EPL-2.0

package audcap

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/formats/wav"
	"github.com/ik5/audcap/internal/audiotest"
	"github.com/ik5/audcap/pcm"
)

func TestCollect_SameRate(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSource(16000, 2, 1000, audiotest.Level(0.25))

	buf, err := Collect(src, 16000, 333)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if buf.SampleRate != 16000 || buf.Channels != 2 {
		t.Errorf("Collect() layout = %d Hz x %d, want 16000 Hz x 2", buf.SampleRate, buf.Channels)
	}
	if buf.Frames() != 1000 {
		t.Errorf("Collect() frames = %d, want 1000", buf.Frames())
	}
	for i, s := range buf.Samples {
		if s != 0.25 {
			t.Fatalf("Samples[%d] = %v, want 0.25", i, s)
		}
	}
}

func TestCollect_Resamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inRate   int
		outRate  int
		channels int
	}{
		{"44.1k to 8k mono", 44100, 8000, 1},
		{"8k to 16k stereo", 8000, 16000, 2},
		{"48k to 16k stereo", 48000, 16000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSource(tt.inRate, tt.channels, tt.inRate, audiotest.Sine(tt.inRate, 440))

			buf, err := Collect(src, tt.outRate, 4096)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}

			want := audio.ResampledLength(tt.inRate, tt.inRate, tt.outRate)
			if buf.Frames() != want {
				t.Errorf("Collect() frames = %d, want %d", buf.Frames(), want)
			}
			if buf.SampleRate != tt.outRate {
				t.Errorf("Collect() rate = %d, want %d", buf.SampleRate, tt.outRate)
			}
			for i, s := range buf.Samples {
				if s < -1 || s > 1 {
					t.Fatalf("Samples[%d] = %v, outside [-1, 1]", i, s)
				}
			}
		})
	}
}

func TestCollect_EmptySource(t *testing.T) {
	t.Parallel()

	buf, err := Collect(audiotest.NewSource(8000, 1, 0, audiotest.Silence), 16000, 1024)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(buf.Samples) != 0 {
		t.Errorf("Collect() returned %d samples, want 0", len(buf.Samples))
	}
}

func TestCollect_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     audio.Source
		rate    int
		bufSize int
		want    error
	}{
		{"zero rate", audiotest.NewSource(8000, 1, 10, audiotest.Silence), 0, 1024, audio.ErrInvalidRate},
		{"no channels", audiotest.NewSource(8000, 0, 10, audiotest.Silence), 8000, 1024, audio.ErrInvalidChannels},
		{"buffer below one frame", audiotest.NewSource(8000, 2, 10, audiotest.Silence), 8000, 1, audio.ErrInvalidDstSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Collect(tt.src, tt.rate, tt.bufSize); !errors.Is(err, tt.want) {
				t.Errorf("Collect() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type failingSource struct {
	audio.Source
}

var errBroken = errors.New("broken stream")

func (failingSource) ReadSamples([]float32) (int, error) { return 0, errBroken }

func TestCollect_SourceError(t *testing.T) {
	t.Parallel()

	src := failingSource{audiotest.NewSource(8000, 1, 10, audiotest.Silence)}
	if _, err := Collect(src, 8000, 64); !errors.Is(err, errBroken) {
		t.Errorf("Collect() error = %v, want %v", err, errBroken)
	}
}

type stalledSource struct {
	audio.Source
	reads int
}

func (s *stalledSource) ReadSamples([]float32) (int, error) {
	s.reads++
	return 0, nil
}

func TestCollect_StalledSource(t *testing.T) {
	t.Parallel()

	for _, rate := range []int{8000, 16000} {
		src := &stalledSource{Source: audiotest.NewSource(8000, 1, 10, audiotest.Silence)}
		if _, err := Collect(src, rate, 64); !errors.Is(err, io.ErrNoProgress) {
			t.Errorf("Collect(rate %d) error = %v, want %v", rate, err, io.ErrNoProgress)
		}
		if src.reads == 0 || src.reads > maxEmptyReads {
			t.Errorf("Collect(rate %d) read %d times, want 1..%d", rate, src.reads, maxEmptyReads)
		}
	}
}

func TestTranscode_Formats(t *testing.T) {
	t.Parallel()

	for _, f := range []pcm.Format{pcm.Bits8, pcm.Bits16, pcm.Bits24, pcm.Bits32} {
		t.Run(f.String(), func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSource(8000, 1, 800, audiotest.Level(0.5))

			data, err := Transcode(src, 8000, f, 256)
			if err != nil {
				t.Fatalf("Transcode() error = %v", err)
			}
			if len(data) != 800*f.Stride() {
				t.Fatalf("Transcode() = %d bytes, want %d", len(data), 800*f.Stride())
			}

			want, _ := pcm.Encode([]float32{0.5}, f)
			if !bytes.Equal(data[:f.Stride()], want) {
				t.Errorf("first sample = %v, want %v", data[:f.Stride()], want)
			}
		})
	}
}

func TestTranscode_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := Transcode(audiotest.NewSource(8000, 1, 10, audiotest.Silence), 8000, pcm.Format(12), 64)
	if !errors.Is(err, pcm.ErrInvalidFormat) {
		t.Errorf("Transcode() error = %v, want %v", err, pcm.ErrInvalidFormat)
	}
}

func TestTranscodeWAV(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSource(22050, 2, 2205, audiotest.Sine(22050, 1000))

	var out bytes.Buffer
	if err := TranscodeWAV(&out, src, 11025, pcm.Bits16, 4096); err != nil {
		t.Fatalf("TranscodeWAV() error = %v", err)
	}

	dec, err := wav.Decoder{}.Decode(&out)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if dec.SampleRate() != 11025 || dec.Channels() != 2 {
		t.Errorf("decoded layout = %d Hz x %d, want 11025 Hz x 2", dec.SampleRate(), dec.Channels())
	}

	got := 0
	buf := make([]float32, 1024)
	for {
		n, err := dec.ReadSamples(buf)
		got += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if want := audio.ResampledLength(2205, 22050, 11025) * 2; got != want {
		t.Errorf("decoded %d samples, want %d", got, want)
	}
}

func BenchmarkCollect(b *testing.B) {
	src := audiotest.NewSource(44100, 2, 44100, audiotest.Sine(44100, 440))

	b.ReportAllocs()
	for b.Loop() {
		src.Rewind()
		if _, err := Collect(src, 16000, 4096); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTranscode(b *testing.B) {
	src := audiotest.NewSource(48000, 1, 48000, audiotest.Sine(48000, 440))

	b.ReportAllocs()
	for b.Loop() {
		src.Rewind()
		if _, err := Transcode(src, 16000, pcm.Bits16, 4096); err != nil {
			b.Fatal(err)
		}
	}
}

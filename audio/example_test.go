// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/internal/audiotest"
)

func ExampleNewResampler() {
	// one second of 5.1 audio at 48 kHz
	src := audiotest.NewSource(48000, 6, 48000, audiotest.Level(0.5))
	r := audio.NewResampler(src, 8000)
	defer r.Close()

	var (
		frames int
		first  []float32
		buf    = make([]float32, 4096-4096%r.Channels())
	)
	for {
		n, err := r.ReadSamples(buf)
		if first == nil && n > 0 {
			first = append(first, buf[:r.Channels()]...)
		}
		frames += n / r.Channels()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Println("error:", err)
			return
		}
	}

	fmt.Printf("%d Hz x %d: %d frames\n", r.SampleRate(), r.Channels(), frames)
	fmt.Println(first)
	// Output:
	// 8000 Hz x 6: 8000 frames
	// [0.5 0.5 0.5 0.5 0.5 0.5]
}

func ExampleResample() {
	out, err := audio.Resample([]float32{0, 1, 0}, 8000, 16000)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	// positions past the last input repeat it
	fmt.Println(out)
	// Output:
	// [0 0.5 1 0.5 0 0]
}

func ExampleLinearStream() {
	stream, err := audio.NewLinearStream(44100, 16000, 1)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	// a second of device reads, 10 ms each
	chunk := make([]float32, 441)
	var out []float32
	for range 100 {
		out = stream.Process(out, chunk)
	}
	out = stream.Flush(out)

	fmt.Println(len(out), audio.ResampledLength(44100, 44100, 16000))
	// Output:
	// 16000 16000
}

func ExampleBuffer() {
	b := audio.Buffer{Samples: make([]float32, 2*16000), Channels: 2, SampleRate: 16000}

	half, err := b.Resample(8000)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(b.Frames(), b.Duration())
	fmt.Println(half.Frames(), half.Duration())
	// Output:
	// 16000 1s
	// 8000 1s
}

type toneDecoder struct{}

func (toneDecoder) Decode(io.Reader) (audio.Source, error) {
	return audiotest.NewSource(16000, 1, 1600, audiotest.Sine(16000, 440)), nil
}

func ExampleRegistry_ForPath() {
	reg := audio.NewRegistry()
	reg.Register("wav", toneDecoder{})

	for _, path := range []string{"takes/Intro.WAV", "takes/intro.flac"} {
		dec, ok := reg.ForPath(path)
		if !ok {
			fmt.Printf("%s: no decoder\n", path)
			continue
		}

		src, err := dec.Decode(bytes.NewReader(nil))
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("%s: %d Hz x %d\n", path, src.SampleRate(), src.Channels())
	}

	fmt.Println(reg.Formats())
	// Output:
	// takes/Intro.WAV: 16000 Hz x 1
	// takes/intro.flac: no decoder
	// [wav]
}

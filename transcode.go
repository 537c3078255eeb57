// SPDX-License-Identifier: EPL-2.0

package audcap

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/formats/wav"
	"github.com/ik5/audcap/pcm"
)

// maxEmptyReads bounds consecutive (0, nil) reads before Collect gives up.
const maxEmptyReads = 100

// Collect reads src to the end, resampled to targetRate, and returns the
// samples with their layout. The channel count of src is kept. bufSize is
// the read size in samples and is rounded down to whole frames.
//
// Collect does not close src. A source that keeps returning no samples
// and no error fails with io.ErrNoProgress.
func Collect(src audio.Source, targetRate, bufSize int) (audio.Buffer, error) {
	if targetRate <= 0 {
		return audio.Buffer{}, fmt.Errorf("%w: %d", audio.ErrInvalidRate, targetRate)
	}

	ch := src.Channels()
	if ch <= 0 {
		return audio.Buffer{}, fmt.Errorf("%w: %d", audio.ErrInvalidChannels, ch)
	}

	bufSize -= bufSize % ch
	if bufSize <= 0 {
		return audio.Buffer{}, audio.ErrInvalidDstSize
	}

	var in audio.Source = src
	if src.SampleRate() != targetRate {
		in = audio.NewResampler(src, targetRate)
	}

	// ~2 seconds to start with, grown by append
	out := audio.Buffer{
		Samples:    make([]float32, 0, targetRate*ch*2),
		Channels:   ch,
		SampleRate: targetRate,
	}
	buf := make([]float32, bufSize)

	for empty := 0; ; {
		n, err := in.ReadSamples(buf)
		if n > 0 {
			out.Samples = append(out.Samples, buf[:n]...)
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("failed to read source: %w", err)
		}

		if n > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxEmptyReads {
			return audio.Buffer{}, fmt.Errorf("failed to read source: %w", io.ErrNoProgress)
		}
	}

	return out, nil
}

// Transcode resamples src to targetRate and encodes it as headerless PCM
// in format f.
func Transcode(src audio.Source, targetRate int, f pcm.Format, bufSize int) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", pcm.ErrInvalidFormat, int(f))
	}

	buf, err := Collect(src, targetRate, bufSize)
	if err != nil {
		return nil, err
	}

	return pcm.Encode(buf.Samples, f)
}

// TranscodeWAV is Transcode with a WAV header, written to w.
func TranscodeWAV(w io.Writer, src audio.Source, targetRate int, f pcm.Format, bufSize int) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %d", pcm.ErrInvalidFormat, int(f))
	}

	buf, err := Collect(src, targetRate, bufSize)
	if err != nil {
		return err
	}

	return wav.WriteWAV(w, buf.SampleRate, buf.Channels, f, buf.Samples)
}

// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"
	"time"

	gowav "github.com/go-audio/wav"
)

// Info describes a WAV file without decoding its samples.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Inspect reads the header of a WAV file.
func Inspect(r io.ReadSeeker) (Info, error) {
	d := gowav.NewDecoder(r)
	d.ReadInfo()

	if !d.IsValidFile() {
		return Info{}, ErrNotWavFile
	}

	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}

	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("failed to find WAV data: %w", err)
	}

	frameSize := int64(info.Channels * info.BitDepth / 8)
	if frameSize > 0 && info.SampleRate > 0 {
		frames := d.PCMLen() / frameSize
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}

	return info, nil
}

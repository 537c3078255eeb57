// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/audcap/utils"
)

// ResampledLength is round(frames * outRate / inRate).
func ResampledLength(frames, inRate, outRate int) int {
	if frames <= 0 || inRate <= 0 || outRate <= 0 {
		return 0
	}
	in, out := int64(inRate), int64(outRate)
	return int((2*int64(frames)*out + in) / (2 * in))
}

// Resample converts mono samples from inRate to outRate by linear
// interpolation. Equal rates return samples unchanged.
//
// Output sample i is taken at source position i*inRate/outRate, between
// the two neighbouring input samples. Positions past the last input
// sample repeat it; there is no extrapolation.
func Resample(samples []float32, inRate, outRate int) ([]float32, error) {
	return ResampleInto(nil, samples, inRate, outRate)
}

// ResampleInto is Resample writing into dst. dst is only used when its
// length equals the resampled length; otherwise a new slice is returned.
func ResampleInto(dst, samples []float32, inRate, outRate int) ([]float32, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}
	if inRate == outRate {
		return samples, nil
	}

	return resampleFrames(dst, samples, 1, inRate, outRate), nil
}

// resampleFrames resamples interleaved frames, one channel at a time.
func resampleFrames(dst, samples []float32, channels, inRate, outRate int) []float32 {
	frames := len(samples) / channels
	n := ResampledLength(frames, inRate, outRate) * channels
	if len(dst) != n {
		dst = make([]float32, n)
	}

	last := frames - 1
	in, out := int64(inRate), int64(outRate)

	for i := range n / channels {
		num := int64(i) * in
		left := min(int(num/out), last)
		right := min(left+1, last)
		frac := float32(num%out) / float32(out)

		for c := range channels {
			dst[i*channels+c] = utils.LinearInterpolate(samples[left*channels+c], samples[right*channels+c], frac)
		}
	}

	return dst
}

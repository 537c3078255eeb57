// SPDX-License-Identifier: EPL-2.0

package pcm

// TrimSilence returns the [start, end) range of samples that remains after
// dropping silence at both ends. start keeps one sample of pre-roll before
// the first sample louder than threshold; end is one past the last one.
func TrimSilence(samples []float32, threshold float32) (int, int, error) {
	first := -1
	for i, s := range samples {
		if abs(s) > threshold {
			first = i
			break
		}
	}
	if first < 0 {
		return 0, 0, ErrEmptyTrim
	}

	last := first
	for i := len(samples) - 1; i > first; i-- {
		if abs(samples[i]) > threshold {
			last = i
			break
		}
	}

	return max(first-1, 0), last + 1, nil
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

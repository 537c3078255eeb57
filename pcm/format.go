// SPDX-License-Identifier: EPL-2.0

package pcm

import "fmt"

// Format is a PCM bit depth.
type Format int

const (
	Bits8  Format = 8
	Bits16 Format = 16
	Bits24 Format = 24
	Bits32 Format = 32
)

// DefaultSilenceThreshold is the magnitude at or below which a sample is
// considered silent when trimming.
const DefaultSilenceThreshold float32 = 0.001

// ParseBitDepth returns the Format for a bit depth of 8, 16, 24 or 32.
func ParseBitDepth(bits int) (Format, error) {
	f := Format(bits)
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFormat, bits)
	}
	return f, nil
}

func (f Format) Valid() bool {
	switch f {
	case Bits8, Bits16, Bits24, Bits32:
		return true
	}
	return false
}

// Stride is the number of bytes per encoded sample, 0 for an invalid format.
func (f Format) Stride() int {
	if !f.Valid() {
		return 0
	}
	return int(f) / 8
}

func (f Format) BitDepth() int { return int(f) }

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("pcm(%d)", int(f))
	}
	return fmt.Sprintf("s%dle", int(f))
}

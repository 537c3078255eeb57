// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/ik5/audcap/utils"
)

// EncodeOptions controls silence trimming for EncodeWith.
type EncodeOptions struct {
	Trim             bool
	SilenceThreshold float32
}

// Encode quantizes samples to f. The result holds len(samples)*f.Stride() bytes.
func Encode(samples []float32, f Format) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}
	return appendEncoded(make([]byte, 0, len(samples)*f.Stride()), samples, f), nil
}

// EncodeTrimmed trims silence (see TrimSilence) and encodes the remainder.
func EncodeTrimmed(samples []float32, f Format, threshold float32) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}
	start, end, err := TrimSilence(samples, threshold)
	if err != nil {
		return nil, err
	}
	return Encode(samples[start:end], f)
}

// EncodeWith encodes samples, trimming first when opts.Trim is set.
func EncodeWith(samples []float32, f Format, opts EncodeOptions) ([]byte, error) {
	if opts.Trim {
		return EncodeTrimmed(samples, f, opts.SilenceThreshold)
	}
	return Encode(samples, f)
}

// AppendEncode appends the encoding of samples to dst.
func AppendEncode(dst []byte, samples []float32, f Format) ([]byte, error) {
	if !f.Valid() {
		return dst, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}
	return appendEncoded(dst, samples, f), nil
}

func appendEncoded(dst []byte, samples []float32, f Format) []byte {
	switch f {
	case Bits8:
		for _, s := range samples {
			dst = append(dst, utils.Float32ToUint8(s))
		}
	case Bits16:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(utils.Float32ToInt16(s)))
		}
	case Bits24:
		for _, s := range samples {
			v := utils.Float32ToInt24(s)
			dst = append(dst, byte(v), byte(v>>8), byte(v>>16))
		}
	case Bits32:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(utils.Float32ToInt32(s)))
		}
	}
	return dst
}

// Decode converts PCM bytes back to normalized samples.
func Decode(data []byte, f Format) ([]float32, error) {
	return DecodeInto(nil, data, f)
}

// DecodeInto decodes into dst, reusing its storage when it has enough capacity.
func DecodeInto(dst []float32, data []byte, f Format) ([]float32, error) {
	n, err := sampleCount(data, f)
	if err != nil {
		return nil, err
	}

	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]

	switch f {
	case Bits8:
		for i, b := range data {
			dst[i] = utils.Uint8ToFloat32(b)
		}
	case Bits16:
		for i := range n {
			dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(data[2*i:])))
		}
	case Bits24:
		for i := range n {
			dst[i] = utils.Int24ToFloat32(int24At(data[3*i:]))
		}
	case Bits32:
		for i := range n {
			dst[i] = utils.Int32ToFloat32(int32(binary.LittleEndian.Uint32(data[4*i:])))
		}
	}

	return dst, nil
}

// DecodeInts returns the integer sample values of data. 8-bit values stay
// unsigned (0..255), matching what WAV containers store.
func DecodeInts(data []byte, f Format) ([]int, error) {
	n, err := sampleCount(data, f)
	if err != nil {
		return nil, err
	}

	out := make([]int, n)
	switch f {
	case Bits8:
		for i, b := range data {
			out[i] = int(b)
		}
	case Bits16:
		for i := range n {
			out[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
		}
	case Bits24:
		for i := range n {
			out[i] = int(int24At(data[3*i:]))
		}
	case Bits32:
		for i := range n {
			out[i] = int(int32(binary.LittleEndian.Uint32(data[4*i:])))
		}
	}

	return out, nil
}

// AppendQuantized appends the integer values Encode would store for
// samples, in the same domain as DecodeInts.
func AppendQuantized(dst []int, samples []float32, f Format) ([]int, error) {
	if !f.Valid() {
		return dst, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}

	for _, s := range samples {
		switch f {
		case Bits8:
			dst = append(dst, int(utils.Float32ToUint8(s)))
		case Bits16:
			dst = append(dst, int(utils.Float32ToInt16(s)))
		case Bits24:
			dst = append(dst, int(utils.Float32ToInt24(s)))
		case Bits32:
			dst = append(dst, int(utils.Float32ToInt32(s)))
		}
	}

	return dst, nil
}

// EncodeInts packs integer sample values, the inverse of DecodeInts.
// Values outside the range of f are clamped.
func EncodeInts(values []int, f Format) ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}

	out := make([]byte, 0, len(values)*f.Stride())
	for _, v := range values {
		switch f {
		case Bits8:
			out = append(out, byte(clampInt(v, 0, 255)))
		case Bits16:
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(clampInt(v, -1<<15, 1<<15-1))))
		case Bits24:
			c := clampInt(v, utils.MinInt24, utils.MaxInt24)
			out = append(out, byte(c), byte(c>>8), byte(c>>16))
		case Bits32:
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(clampInt(v, -1<<31, 1<<31-1))))
		}
	}

	return out, nil
}

func sampleCount(data []byte, f Format) (int, error) {
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
	}
	stride := f.Stride()
	if len(data)%stride != 0 {
		return 0, fmt.Errorf("%w: %d bytes, stride %d", ErrLengthMismatch, len(data), stride)
	}
	return len(data) / stride, nil
}

// int24At reads a little-endian 24-bit value and sign-extends it from bit 23.
func int24At(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v |= ^0xFFFFFF
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Full-scale values used by the quantizers.
const (
	MaxInt8Scale  = 127.0
	MaxInt16Scale = 32767.0
	MaxInt24      = 1<<23 - 1
	MinInt24      = -1 << 23
	Int24Scale    = 1 << 23
	MaxInt32Scale = math.MaxInt32
)

// Clamp limits x to [-1, 1]. NaN maps to 0.
func Clamp(x float32) float32 {
	if x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Float32ToUint8 maps x to unsigned 8-bit PCM, centered at 128.
func Float32ToUint8(x float32) uint8 {
	v := math.Round(float64(Clamp(x))*MaxInt8Scale + 128)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Uint8ToFloat32 is the inverse of Float32ToUint8.
func Uint8ToFloat32(b uint8) float32 {
	return float32((float64(b) - 128) / MaxInt8Scale)
}

func Float32ToInt16(x float32) int16 {
	// Use 32767 for positive max to avoid overflow
	return int16(float64(Clamp(x)) * MaxInt16Scale)
}

// Int16ToFloat32 is the inverse of Float32ToInt16.
func Int16ToFloat32(v int16) float32 {
	return float32(float64(v) / MaxInt16Scale)
}

// Float32ToInt24 returns a signed 24-bit value held in an int32.
func Float32ToInt24(x float32) int32 {
	v := int64(float64(Clamp(x)) * MaxInt24)
	if v > MaxInt24 {
		v = MaxInt24
	} else if v < MinInt24 {
		v = MinInt24
	}
	return int32(v)
}

// Int24ToFloat32 normalizes a sign-extended 24-bit value by 2^23.
func Int24ToFloat32(v int32) float32 {
	return float32(float64(v) / Int24Scale)
}

func Float32ToInt32(x float32) int32 {
	return int32(float64(Clamp(x)) * MaxInt32Scale)
}

// Int32ToFloat32 is the inverse of Float32ToInt32.
func Int32ToFloat32(v int32) float32 {
	return float32(float64(v) / MaxInt32Scale)
}

// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestLinearInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		y0, y1 float32
		x      float32
		want   float32
	}{
		{name: "start returns y0", y0: 1, y1: 2, x: 0, want: 1},
		{name: "end returns y1", y0: 1, y1: 2, x: 1, want: 2},
		{name: "midpoint", y0: 1, y1: 2, x: 0.5, want: 1.5},
		{name: "quarter", y0: 0, y1: 4, x: 0.25, want: 1},
		{name: "negative slope", y0: 0.5, y1: -0.5, x: 0.5, want: 0},
		{name: "flat", y0: 0.3, y1: 0.3, x: 0.7, want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := LinearInterpolate(tt.y0, tt.y1, tt.x)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("LinearInterpolate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLinearInterpolateMonotonic checks the result never decreases for y0 < y1
func TestLinearInterpolateMonotonic(t *testing.T) {
	t.Parallel()

	prev := LinearInterpolate(-0.7, 0.9, 0)
	for x := float32(0.01); x <= 1.0; x += 0.01 {
		got := LinearInterpolate(-0.7, 0.9, x)
		if got < prev {
			t.Fatalf("x=%v: %v < previous %v", x, got, prev)
		}
		prev = got
	}
}

func BenchmarkLinearInterpolate(b *testing.B) {
	var result float32

	b.ReportAllocs()

	for i := range b.N {
		result = LinearInterpolate(0.1, 0.5, float32(i%100)/100)
	}

	_ = result
}

// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"
)

// ValidateVolume reports whether v is a usable volume factor: finite and >= 0.
func ValidateVolume(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: volume %v must be a finite value >= 0", ErrInvalidParameter, v)
	}
	return nil
}

// ApplyGain scales every sample of src by volume into dst and returns dst[:len(src)].
// Results are hard clipped to [-1, 1]; NaN samples become silence. dst may be src.
// If dst is too small a new slice is allocated.
func ApplyGain(dst, src []float32, volume float64) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]

	if volume == 0 {
		clear(dst)
		return dst
	}

	g := float32(volume)
	for i, s := range src {
		x := s * g
		switch {
		case x != x:
			x = 0
		case x > 1:
			x = 1
		case x < -1:
			x = -1
		}
		dst[i] = x
	}

	return dst
}

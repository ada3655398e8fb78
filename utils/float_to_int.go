// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

// Float32ToInt16 converts a normalized sample to 16-bit PCM, clamping to [-1, 1].
// NaN converts to 0.
func Float32ToInt16(x float32) int16 {
	if x != x {
		return 0
	}

	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// PutPCM16LE writes src as little-endian 16-bit PCM into dst and returns the
// number of bytes written. dst must hold at least 2*len(src) bytes.
func PutPCM16LE(dst []byte, src []float32) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(Float32ToInt16(s)))
	}

	return 2 * len(src)
}

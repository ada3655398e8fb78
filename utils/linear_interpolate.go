// SPDX-License-Identifier: EPL-2.0

package utils

// LinearInterpolate returns the point at fraction x (0 <= x <= 1) between y0 and y1.
// x == 0 returns y0 exactly.
func LinearInterpolate(y0, y1, x float32) float32 {
	return y0 + (y1-y0)*x
}

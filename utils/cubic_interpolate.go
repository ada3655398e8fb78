// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate evaluates the Catmull-Rom segment between y1 and y2 at t
// in [0, 1]; y0 and y3 are the outer neighbours. The curve passes through y1
// at t=0 and y2 at t=1 and reproduces straight ramps. At the edge of a signal
// the missing neighbour is the edge sample repeated, which keeps the segment
// between its two endpoints.
func CubicInterpolate(y0, y1, y2, y3, t float32) float32 {
	return y1 + 0.5*t*(y2-y0+t*(2*y0-5*y1+4*y2-y3+t*(3*(y1-y2)+y3-y0)))
}

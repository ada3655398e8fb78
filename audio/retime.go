// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"

	"github.com/ik5/oggly/utils"
)

// ValidateSpeed reports whether s is a usable playback speed: finite and > 0.
func ValidateSpeed(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return fmt.Errorf("%w: speed %v must be a finite value > 0", ErrInvalidParameter, s)
	}
	return nil
}

// Retime resamples interleaved frames along the time axis with linear
// interpolation so the result holds ceil(n/speed) frames. Pitch shifts with
// speed. speed == 1 returns an exact copy.
func Retime(frames []float32, channels int, speed float64) ([]float32, error) {
	if err := ValidateSpeed(speed); err != nil {
		return nil, err
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channels %d", ErrInvalidParameter, channels)
	}
	if len(frames)%channels != 0 {
		return nil, ErrInvalidDstSize
	}

	if speed == 1 {
		out := make([]float32, len(frames))
		copy(out, frames)
		return out, nil
	}

	n := len(frames) / channels
	if n == 0 {
		return []float32{}, nil
	}

	m := int(math.Ceil(float64(n) / speed))
	out := make([]float32, m*channels)

	for j := range m {
		p := float64(j) * speed
		i := min(int(p), n-1)
		next := min(i+1, n-1)
		frac := float32(p - float64(i))

		for c := range channels {
			out[j*channels+c] = utils.LinearInterpolate(frames[i*channels+c], frames[next*channels+c], frac)
		}
	}

	return out, nil
}

// Retimer is the streaming form of Retime. It carries the fractional read
// position and the last input frame across calls, so a stream processed in
// chunks yields the same frame count as retiming it in one piece. The speed
// passed to Process applies from the start of that chunk.
type Retimer struct {
	channels int
	pos      float64 // next output position; index 0 is prev when hasPrev
	prev     []float32
	hasPrev  bool
	speed    float64
	out      []float32
}

// NewRetimer returns a Retimer for interleaved frames of the given width.
func NewRetimer(channels int) *Retimer {
	return &Retimer{
		channels: channels,
		prev:     make([]float32, channels),
		speed:    1,
	}
}

// Process retimes one chunk. The returned slice is reused by the next call to
// Process or Flush. The last frame of src is held back until more input (or
// Flush) arrives, since interpolation needs its right-hand neighbour.
func (r *Retimer) Process(src []float32, speed float64) ([]float32, error) {
	if err := ValidateSpeed(speed); err != nil {
		return nil, err
	}
	if r.channels <= 0 {
		return nil, fmt.Errorf("%w: channels %d", ErrInvalidParameter, r.channels)
	}
	if len(src)%r.channels != 0 {
		return nil, ErrInvalidDstSize
	}

	r.out = r.out[:0]
	r.speed = speed

	n := len(src) / r.channels
	if n == 0 {
		return r.out, nil
	}

	off := 0
	if r.hasPrev {
		off = 1
	}
	total := n + off

	frame := func(k int) []float32 {
		if k < off {
			return r.prev
		}
		k -= off
		return src[k*r.channels : (k+1)*r.channels]
	}

	// pos stays a float until it is known to index a frame; a huge speed
	// leaves it beyond any int.
	for r.pos < float64(total-1) {
		i := int(r.pos)
		frac := float32(r.pos - float64(i))
		a, b := frame(i), frame(i+1)
		for c := range r.channels {
			r.out = append(r.out, utils.LinearInterpolate(a[c], b[c], frac))
		}
		r.pos += speed
	}

	r.pos -= float64(total - 1)
	copy(r.prev, frame(total-1))
	r.hasPrev = true

	return r.out, nil
}

// Flush emits the frames still owed for the held-back last frame and resets
// the Retimer for a new stream.
func (r *Retimer) Flush() []float32 {
	r.out = r.out[:0]

	if r.hasPrev {
		for r.pos < 1 {
			r.out = append(r.out, r.prev...)
			r.pos += r.speed
		}
	}

	r.pos = 0
	r.hasPrev = false
	return r.out
}

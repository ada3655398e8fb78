// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/oggly/utils"
)

// Resampler converts src to a fixed output rate using cubic interpolation.
// It is used when the output device runs at a rate other than the source's.
// Works on interleaved samples; preserves channel count.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// window holds 4 frames for cubic interpolation:
	// window[0] = t-1, window[1] = t0, window[2] = t+1, window[3] = t+2
	window [4][]float32
	valid  [4]bool
	primed bool

	// Position between window[1] and window[2], in source frames
	pos float64

	frame []float32
	eof   bool

	// One-pole low-pass state, only used when downsampling
	lowpass     bool
	alpha       float32
	filterState []float32
}

// NewResampler converts src to dstRate with Catmull-Rom interpolation,
// low-pass filtering first when downsampling.
func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		frame:       make([]float32, channels),
		lowpass:     ratio > 1.0,
		filterState: make([]float32, channels),
	}
	if r.lowpass {
		// Cutoff near the destination Nyquist frequency
		r.alpha = 0.5
	}

	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BitDepth() int   { return r.src.BitDepth() }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame reads exactly one frame from src into r.frame.
func (r *Resampler) readFrame() (bool, error) {
	got := 0
	for empty := 0; got < r.channels; {
		n, err := r.src.ReadSamples(r.frame[got:])
		got += n
		if err != nil {
			return got == r.channels, err
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return false, io.ErrNoProgress
			}
		}
	}
	return true, nil
}

func (r *Resampler) filter(frame []float32) {
	if !r.lowpass {
		return
	}
	for c := range r.channels {
		frame[c] = r.alpha*frame[c] + (1-r.alpha)*r.filterState[c]
		r.filterState[c] = frame[c]
	}
}

// prime fills the interpolation window from the start of the source.
func (r *Resampler) prime() error {
	r.primed = true

	for i := range r.window {
		ok, err := r.readFrame()
		if ok {
			if i == 0 {
				// Avoid a warm-up transient from a zero filter state
				copy(r.filterState, r.frame)
			}
			copy(r.window[i], r.frame)
			r.filter(r.window[i])
			r.valid[i] = true
		}

		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w", err)
		}

		r.eof = true
		if !r.valid[0] {
			return io.EOF
		}
		// Repeat the last valid frame in the remaining slots
		last := i
		if !ok {
			last = i - 1
		}
		for j := last + 1; j < len(r.window); j++ {
			copy(r.window[j], r.window[last])
			r.valid[j] = true
		}
		return nil
	}

	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	if r.eof && !r.valid[3] {
		return io.EOF
	}

	copy(r.window[0], r.window[1])
	copy(r.window[1], r.window[2])
	copy(r.window[2], r.window[3])
	r.valid[0], r.valid[1], r.valid[2] = r.valid[1], r.valid[2], r.valid[3]

	if r.eof {
		r.valid[3] = false
		if !r.valid[2] {
			return io.EOF
		}
		return nil
	}

	ok, err := r.readFrame()
	r.valid[3] = ok
	if ok {
		copy(r.window[3], r.frame)
		r.filter(r.window[3])
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.eof = true
		if !r.valid[2] {
			return io.EOF
		}
	default:
		return fmt.Errorf("%w", err)
	}

	return nil
}

// ReadSamples produces dst samples at the destination rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.valid[1] || !r.valid[2] {
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			y0 := r.window[1][c]
			if r.valid[0] {
				y0 = r.window[0][c]
			}
			y3 := r.window[2][c]
			if r.valid[3] {
				y3 = r.window[3][c]
			}

			out[c] = utils.CubicInterpolate(y0, r.window[1][c], r.window[2][c], y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}

// SPDX-License-Identifier: EPL-2.0

// Package output adapts audio backends to a pull model: the device asks a
// Puller for frames whenever it needs them and plays silence for any
// shortfall.
package output

import (
	"context"
	"fmt"
	"time"
)

// DefaultFramesPerPull is used when Config.FramesPerPull is zero.
const DefaultFramesPerPull = 1024

// Config is the PCM layout a device is opened with.
type Config struct {
	SampleRate    int
	Channels      int
	FramesPerPull int
}

// WithDefaults fills zero fields that have a default.
func (c Config) WithDefaults() Config {
	if c.FramesPerPull <= 0 {
		c.FramesPerPull = DefaultFramesPerPull
	}
	return c
}

// Validate reports a non-positive rate or channel count.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidConfig, c.Channels, c.SampleRate)
	}
	return nil
}

// Period is how long one pull of FramesPerPull frames lasts in real time.
func (c Config) Period() time.Duration {
	c = c.WithDefaults()
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FramesPerPull) * time.Second / time.Duration(c.SampleRate)
}

// Puller supplies interleaved frames to a device. Pull fills the front of dst
// and returns the number of whole frames written. It must not block.
type Puller interface {
	Pull(dst []float32) int
}

// PullFunc adapts a function to Puller.
type PullFunc func(dst []float32) int

// Pull calls f.
func (f PullFunc) Pull(dst []float32) int { return f(dst) }

// Device is an opened output. Start begins pulling; Close stops pulling and
// releases the backend. Close is safe to call more than once.
type Device interface {
	Start() error
	Close() error
}

// Drainer is implemented by devices whose backend holds audio beyond what
// the Puller has handed over. Drain blocks until that audio has played or
// ctx ends. Pulls after Drain starts are taken as the end of the stream.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Driver opens devices on one backend.
type Driver interface {
	Name() string
	Open(cfg Config, src Puller) (Device, error)
}

// fill pulls into dst, zeroes whatever the puller left unwritten and returns
// the number of frames the puller delivered.
func fill(src Puller, dst []float32, channels int) int {
	n := src.Pull(dst)
	n = max(0, min(n, len(dst)/channels))
	clear(dst[n*channels:])
	return n
}

// SPDX-License-Identifier: EPL-2.0

// Package outputtest provides an output driver that records what a device
// would have played.
package outputtest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ik5/oggly/output"
)

// ErrSinkFailed is what a capture device fails with after FailAfterPulls pulls.
var ErrSinkFailed = errors.New("outputtest: device failed")

// Driver opens capture devices. Its fields must be set before the first Open.
type Driver struct {
	// Period between pulls. Zero pulls every millisecond.
	Period time.Duration
	// OpenErr makes Open fail.
	OpenErr error
	// FailAfterPulls makes devices fail on that pull. Zero never fails.
	FailAfterPulls int
	// DrainDelay is how long Drain blocks, standing in for audio still
	// queued in a backend.
	DrainDelay time.Duration

	mtx      sync.Mutex
	captures []*Capture
}

// Name implements output.Driver.
func (d *Driver) Name() string { return "capture" }

// Open implements output.Driver.
func (d *Driver) Open(cfg output.Config, src output.Puller) (output.Device, error) {
	if d.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", output.ErrDeviceUnavailable, d.OpenErr)
	}

	period := d.Period
	if period <= 0 {
		period = time.Millisecond
	}

	c := &Capture{Config: cfg.WithDefaults(), failAfter: d.FailAfterPulls}
	dev, err := output.NewTickerDevice(cfg, src, period, c)
	if err != nil {
		return nil, err
	}

	d.mtx.Lock()
	d.captures = append(d.captures, c)
	d.mtx.Unlock()

	return &device{TickerDevice: dev, capture: c, delay: d.DrainDelay}, nil
}

type device struct {
	*output.TickerDevice
	capture *Capture
	delay   time.Duration
}

// Drain implements output.Drainer.
func (d *device) Drain(ctx context.Context) error {
	d.capture.mtx.Lock()
	d.capture.drains++
	if d.capture.closed {
		d.capture.lateDrains++
	}
	d.capture.mtx.Unlock()

	t := time.NewTimer(d.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Last returns the capture of the most recently opened device, or nil.
func (d *Driver) Last() *Capture {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if len(d.captures) == 0 {
		return nil
	}
	return d.captures[len(d.captures)-1]
}

// Capture is the recording of one device.
type Capture struct {
	Config output.Config

	mtx       sync.Mutex
	samples   []float32
	pulls     int
	short     int
	closed    bool
	failAfter int

	drains     int
	lateDrains int
}

// Write implements output.Sink.
func (c *Capture) Write(buf []float32, delivered int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.pulls++
	if c.failAfter > 0 && c.pulls >= c.failAfter {
		return ErrSinkFailed
	}

	c.samples = append(c.samples, buf[:delivered*c.Config.Channels]...)
	if delivered < c.Config.FramesPerPull {
		c.short++
	}
	return nil
}

// Close implements output.Sink.
func (c *Capture) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.closed = true
	return nil
}

// Samples returns a copy of every delivered sample, interleaved.
func (c *Capture) Samples() []float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return slices.Clone(c.samples)
}

// Frames counts delivered frames.
func (c *Capture) Frames() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return len(c.samples) / c.Config.Channels
}

// Pulls counts pulls, including silent ones.
func (c *Capture) Pulls() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.pulls
}

// ShortPulls counts pulls that delivered less than a full block.
func (c *Capture) ShortPulls() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.short
}

// Closed reports whether the device was closed.
func (c *Capture) Closed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.closed
}

// Drains counts Drain calls made while the device was still open.
func (c *Capture) Drains() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.drains - c.lateDrains
}

// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sink consumes one pulled buffer. buf always holds FramesPerPull frames,
// silence padded; delivered counts the frames the puller actually supplied.
type Sink interface {
	Write(buf []float32, delivered int) error
	Close() error
}

// TickerDevice pulls a fixed block on every tick and hands it to a Sink. It
// stands in for a sound card where no real one is involved.
type TickerDevice struct {
	src    Puller
	cfg    Config
	period time.Duration
	sink   Sink

	mtx     sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
	err     error
}

// NewTickerDevice returns a device pulling cfg.FramesPerPull frames every
// period. A zero period paces pulls in real time.
func NewTickerDevice(cfg Config, src Puller, period time.Duration, sink Sink) (*TickerDevice, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if period <= 0 {
		period = cfg.Period()
	}

	return &TickerDevice{
		src:    src,
		cfg:    cfg,
		period: max(period, time.Microsecond),
		sink:   sink,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the pull loop. Starting twice is a no-op.
func (d *TickerDevice) Start() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.closed {
		return fmt.Errorf("%w: device closed", ErrDeviceUnavailable)
	}
	if d.started {
		return nil
	}
	d.started = true

	go d.run()
	return nil
}

func (d *TickerDevice) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	buf := make([]float32, d.cfg.FramesPerPull*d.cfg.Channels)
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}

		n := fill(d.src, buf, d.cfg.Channels)
		if err := d.sink.Write(buf, n); err != nil {
			d.mtx.Lock()
			d.err = err
			d.mtx.Unlock()
			return
		}
	}
}

// Close stops the pull loop, waits for it and closes the sink.
func (d *TickerDevice) Close() error {
	d.mtx.Lock()
	if d.closed {
		d.mtx.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.stop)
	d.mtx.Unlock()

	if started {
		<-d.done
	}

	d.mtx.Lock()
	runErr := d.err
	d.mtx.Unlock()

	return errors.Join(runErr, d.sink.Close())
}

// Err returns the sink error that stopped the pull loop, if any.
func (d *TickerDevice) Err() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.err
}

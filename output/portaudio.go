//go:build portaudio

// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDriver plays through PortAudio's default output device. The
// device calls back for every buffer, so no intermediate thread is involved.
type PortAudioDriver struct{}

// Name implements Driver.
func (PortAudioDriver) Name() string { return "portaudio" }

// Open implements Driver.
func (PortAudioDriver) Open(cfg Config, src Puller) (Device, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initializing portaudio: %w", ErrDeviceUnavailable, err)
	}

	channels := cfg.Channels
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(cfg.SampleRate), cfg.FramesPerPull,
		func(out []float32) {
			fill(src, out, channels)
		})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: opening stream: %w", ErrDeviceUnavailable, err)
	}

	return &portAudioDevice{stream: stream}, nil
}

type portAudioDevice struct {
	stream  *portaudio.Stream
	started bool
	once    sync.Once
}

func (d *portAudioDevice) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	d.started = true
	return nil
}

// Drain waits out the stream's output latency, which is how long the last
// callback's frames take to reach the speaker.
func (d *portAudioDevice) Drain(ctx context.Context) error {
	if !d.started {
		return nil
	}

	t := time.NewTimer(d.stream.Info().OutputLatency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *portAudioDevice) Close() error {
	var err error
	d.once.Do(func() {
		if d.started {
			err = d.stream.Abort()
		}
		err = errors.Join(err, d.stream.Close(), portaudio.Terminate())
	})
	return err
}

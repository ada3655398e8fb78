// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/oggly/utils"
)

// drainPoll is how often Drain checks whether oto has played out its buffer.
const drainPoll = 5 * time.Millisecond

// oto allows a single context per process, fixed to the layout it was
// created with.
var (
	otoMtx      sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// OtoDriver plays through the system sound card with ebitengine/oto.
type OtoDriver struct {
	// BufferSize is the device buffer length; zero uses the backend default.
	BufferSize time.Duration
	Logger     *slog.Logger
}

// Name implements Driver.
func (OtoDriver) Name() string { return "oto" }

// Open implements Driver. All devices share one oto context, so every Open in
// a process must ask for the same rate and channel count.
func (d OtoDriver) Open(cfg Config, src Puller) (Device, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if cfg.Channels > 2 {
		return nil, fmt.Errorf("%w: oto plays mono or stereo, not %d channels", ErrDeviceUnavailable, cfg.Channels)
	}

	ctx, err := d.context(cfg)
	if err != nil {
		return nil, err
	}

	r := &pcmReader{src: src, channels: cfg.Channels}
	return &otoDevice{player: ctx.NewPlayer(r), reader: r}, nil
}

func (d OtoDriver) context(cfg Config) (*oto.Context, error) {
	otoMtx.Lock()
	defer otoMtx.Unlock()

	if otoCtx != nil {
		if otoRate != cfg.SampleRate || otoChannels != cfg.Channels {
			return nil, fmt.Errorf("%w: oto already runs at %d Hz with %d channels",
				ErrDeviceUnavailable, otoRate, otoChannels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   d.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	<-ready

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("audio context ready", "driver", "oto", "rate", cfg.SampleRate, "channels", cfg.Channels)

	otoCtx, otoRate, otoChannels = ctx, cfg.SampleRate, cfg.Channels
	return ctx, nil
}

var _ Drainer = (*otoDevice)(nil)

type otoDevice struct {
	player *oto.Player
	reader *pcmReader
	once   sync.Once
}

func (d *otoDevice) Start() error {
	d.player.Play()
	return nil
}

// Drain lets oto read to the end of the pulled frames and waits until its
// player has emptied its own buffer.
func (d *otoDevice) Drain(ctx context.Context) error {
	d.reader.drain()

	tick := time.NewTicker(drainPoll)
	defer tick.Stop()

	for d.player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func (d *otoDevice) Close() error {
	var err error
	d.once.Do(func() {
		d.reader.close()
		d.player.Pause()
		if cerr := d.player.Close(); cerr != nil {
			err = fmt.Errorf("%w", cerr)
		}
	})
	return err
}

// pcmReader turns a Puller into the 16-bit little-endian byte stream oto reads.
type pcmReader struct {
	src      Puller
	channels int

	mtx      sync.Mutex
	buf      []float32
	closed   bool
	draining bool
}

// Read pads a short pull with silence, unless the reader is draining: then
// it returns only the delivered frames and io.EOF once there are none.

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed {
		return 0, io.EOF
	}

	frames := len(p) / (2 * r.channels)
	if frames == 0 {
		return 0, nil
	}

	samples := frames * r.channels
	if cap(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	r.buf = r.buf[:samples]

	n := fill(r.src, r.buf, r.channels)
	if r.draining {
		if n == 0 {
			return 0, io.EOF
		}
		samples = n * r.channels
	}
	return utils.PutPCM16LE(p, r.buf[:samples]), nil
}

func (r *pcmReader) drain() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.draining = true
}

func (r *pcmReader) close() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.closed = true
}

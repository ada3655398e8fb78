// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/oggly/utils"
)

// WAVDriver records what a device would have played into a 16-bit WAV file.
// Only frames the puller delivered are written; underrun padding is not.
type WAVDriver struct {
	Path string
	// Period overrides the real-time pull interval, e.g. to render faster.
	Period time.Duration
}

// Name implements Driver.
func (WAVDriver) Name() string { return "wav" }

// Open creates the file at Path; the WAV header is finalized on Close.
func (d WAVDriver) Open(cfg Config, src Puller) (Device, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("%w: wav driver needs an output path", ErrDeviceUnavailable)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	f, err := os.Create(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	sink := &wavSink{
		f:   f,
		enc: wav.NewEncoder(f, cfg.SampleRate, 16, cfg.Channels, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: cfg.Channels, SampleRate: cfg.SampleRate},
			Data:           make([]int, 0, cfg.FramesPerPull*cfg.Channels),
			SourceBitDepth: 16,
		},
		channels: cfg.Channels,
	}

	// Write the header now so an empty session still leaves a valid file.
	if err := sink.enc.Write(sink.buf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: writing wav header: %w", ErrDeviceUnavailable, err)
	}

	dev, err := NewTickerDevice(cfg, src, d.Period, sink)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	return dev, nil
}

type wavSink struct {
	f        *os.File
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	channels int
}

func (s *wavSink) Write(buf []float32, delivered int) error {
	if delivered == 0 {
		return nil
	}

	samples := buf[:delivered*s.channels]
	s.buf.Data = s.buf.Data[:0]
	for _, v := range samples {
		s.buf.Data = append(s.buf.Data, int(utils.Float32ToInt16(v)))
	}

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("writing wav frames: %w", err)
	}
	return nil
}

func (s *wavSink) Close() error {
	return errors.Join(s.enc.Close(), s.f.Close())
}

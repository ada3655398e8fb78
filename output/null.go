// SPDX-License-Identifier: EPL-2.0

package output

import "time"

// NullDriver pulls at the configured pace and throws the audio away.
type NullDriver struct {
	// Period overrides the real-time pull interval.
	Period time.Duration
}

// Name implements Driver.
func (NullDriver) Name() string { return "null" }

// Open returns a device that pulls in real time and discards the frames.
func (d NullDriver) Open(cfg Config, src Puller) (Device, error) {
	dev, err := NewTickerDevice(cfg, src, d.Period, discard{})
	if err != nil {
		return nil, err
	}
	return dev, nil
}

type discard struct{}

func (discard) Write([]float32, int) error { return nil }
func (discard) Close() error               { return nil }

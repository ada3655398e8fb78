// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"log/slog"
	"time"
)

// DriverOptions carries the per-backend settings NewDriver may need.
type DriverOptions struct {
	// WAVPath is the file the wav driver writes.
	WAVPath string
	// BufferSize is the oto device buffer length.
	BufferSize time.Duration
	// Period overrides the pull interval of the wav and null drivers.
	Period time.Duration
	Logger *slog.Logger
}

// Drivers lists the names NewDriver accepts.
func Drivers() []string {
	return []string{"oto", "portaudio", "wav", "null"}
}

// NewDriver returns the driver registered under name.
func NewDriver(name string, opts DriverOptions) (Driver, error) {
	switch name {
	case "oto", "":
		return OtoDriver{BufferSize: opts.BufferSize, Logger: opts.Logger}, nil
	case "portaudio":
		return PortAudioDriver{}, nil
	case "wav":
		return WAVDriver{Path: opts.WAVPath, Period: opts.Period}, nil
	case "null":
		return NullDriver{Period: opts.Period}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownDriver, name, Drivers())
	}
}

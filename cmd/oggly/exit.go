// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/output"
)

// Process exit codes.
const (
	exitOK           = 0
	exitUsage        = 1
	exitInvalidParam = 2
	exitBadInput     = 3
	exitIO           = 4
	exitDevice       = 5
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, audio.ErrInvalidParameter):
		return exitInvalidParam
	case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrCorruptStream):
		return exitBadInput
	case errors.Is(err, audio.ErrIOFailure):
		return exitIO
	case errors.Is(err, output.ErrDeviceUnavailable), errors.Is(err, output.ErrUnknownDriver):
		return exitDevice
	default:
		return exitUsage
	}
}

func outputDrivers() []string { return output.Drivers() }

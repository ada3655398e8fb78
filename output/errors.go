// SPDX-License-Identifier: EPL-2.0

package output

import "errors"

var (
	// ErrDeviceUnavailable wraps every failure to open or start a device.
	ErrDeviceUnavailable = errors.New("output device unavailable")

	// ErrUnknownDriver is returned by NewDriver for a name it does not know.
	ErrUnknownDriver = errors.New("unknown output driver")

	// ErrInvalidConfig is returned for a Config with no channels or no rate.
	ErrInvalidConfig = errors.New("invalid output config")
)

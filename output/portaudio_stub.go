//go:build !portaudio

// SPDX-License-Identifier: EPL-2.0

package output

import "fmt"

// PortAudioDriver is unavailable in this build; rebuild with -tags portaudio.
type PortAudioDriver struct{}

// Name implements Driver.
func (PortAudioDriver) Name() string { return "portaudio" }

// Open always fails with ErrDeviceUnavailable.
func (PortAudioDriver) Open(Config, Puller) (Device, error) {
	return nil, fmt.Errorf("%w: portaudio support not enabled (build with -tags portaudio)", ErrDeviceUnavailable)
}

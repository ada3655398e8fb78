// SPDX-License-Identifier: EPL-2.0

package playback

import "errors"

var (
	// ErrInvalidState is returned by a control call the current state does not accept.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrNoDriver is returned by Play when the engine has no output driver.
	ErrNoDriver = errors.New("no output driver")
)

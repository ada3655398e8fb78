// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "errors"

var (
	// ErrFull is returned by Push under PolicyFail when the samples do not fit.
	ErrFull = errors.New("ringbuf: buffer full")

	// ErrClosed is returned by Push after Close or CloseWrite.
	ErrClosed = errors.New("ringbuf: buffer closed")

	// ErrMisaligned is returned by Push for a slice that is not whole frames.
	ErrMisaligned = errors.New("ringbuf: samples are not a whole number of frames")
)

// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrInvalidParameter reports a volume, speed or option outside its domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// Decode failure kinds. Use errors.Is against these; the concrete error is a *DecodeError.
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptStream     = errors.New("corrupt stream")
	ErrIOFailure         = errors.New("i/o failure")
)

// DecodeError is returned by Open and Stream.Next when decoding fails.
// Kind is one of ErrUnsupportedFormat, ErrCorruptStream or ErrIOFailure.
type DecodeError struct {
	Kind      error
	Container string
	Err       error
}

func (e *DecodeError) Error() string {
	container := e.Container
	if container == "" {
		container = "audio"
	}

	if e.Err == nil {
		return fmt.Sprintf("%s: %v", container, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", container, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == e.Kind }

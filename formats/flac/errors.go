// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"fmt"

	"github.com/ik5/oggly/audio"
)

var (
	// ErrNotFlacFile indicates the input lacks the fLaC stream marker.
	ErrNotFlacFile = fmt.Errorf("%w: not a FLAC file", audio.ErrUnsupportedFormat)

	// ErrUnsupportedBitDepth indicates samples wider than 32 bits.
	ErrUnsupportedBitDepth = fmt.Errorf("%w: unsupported FLAC bit depth", audio.ErrUnsupportedFormat)

	// ErrChannelMismatch indicates a frame whose channel count differs from STREAMINFO.
	ErrChannelMismatch = errors.New("frame channel count differs from stream info")
)

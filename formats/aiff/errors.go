// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"errors"
	"fmt"

	"github.com/ik5/oggly/audio"
)

var (
	// ErrNotAiffFile indicates the input is not a FORM/AIFF container.
	ErrNotAiffFile = fmt.Errorf("%w: not an AIFF file", audio.ErrUnsupportedFormat)

	// ErrUnsupportedBitDepth indicates a sample size other than 8, 16, 24 or 32 bits.
	ErrUnsupportedBitDepth = fmt.Errorf("%w: unsupported AIFF bit depth", audio.ErrUnsupportedFormat)

	// ErrInvalidLayout indicates a COMM chunk with no channels or no sample rate.
	ErrInvalidLayout = errors.New("invalid AIFF layout")
)

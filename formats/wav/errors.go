// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"

	"github.com/ik5/oggly/audio"
)

var (
	ErrNotWavFile          = fmt.Errorf("%w: not a WAV file", audio.ErrUnsupportedFormat)
	ErrUnsupportedEncoding = fmt.Errorf("%w: unsupported WAV encoding", audio.ErrUnsupportedFormat)
	ErrMissingFormatChunk  = errors.New("data chunk before fmt chunk")
	ErrInvalidFormatChunk  = errors.New("invalid fmt chunk")
	ErrMissingDataChunk    = errors.New("no data chunk")
)

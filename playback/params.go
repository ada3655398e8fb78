// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"errors"
	"fmt"

	"github.com/ik5/oggly/audio"
)

// MinSpeed is the slowest speed a session accepts. Each decoded frame expands
// to 1/speed output frames, so the floor bounds per-chunk memory. Speed has
// no ceiling: a chunk decodes at most one ring buffer of input and the
// retimer skips over the rest.
const MinSpeed = 0.001

// Parameters is the live volume and speed pair. A session replaces the whole
// value on every change, so one chunk never mixes an old volume with a new
// speed.
type Parameters struct {
	Volume float64
	Speed  float64
}

// DefaultParameters plays at unity gain and normal speed.
func DefaultParameters() Parameters {
	return Parameters{Volume: 1, Speed: 1}
}

// Validate reports every out-of-domain field, wrapped in audio.ErrInvalidParameter.
func (p Parameters) Validate() error {
	return errors.Join(audio.ValidateVolume(p.Volume), validateSpeed(p.Speed))
}

func validateSpeed(s float64) error {
	if err := audio.ValidateSpeed(s); err != nil {
		return err
	}
	if s < MinSpeed {
		return fmt.Errorf("%w: speed %v is below the minimum %v", audio.ErrInvalidParameter, s, MinSpeed)
	}
	return nil
}

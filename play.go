// SPDX-License-Identifier: EPL-2.0

package oggly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/playback"
)

// renderPeriod is the pull interval RenderFile uses. Each pull moves
// output.DefaultFramesPerPull frames, far faster than real time.
const renderPeriod = time.Millisecond

// PlayFile plays the file at path on driver and blocks until it played out,
// failed or ctx was cancelled. The container is detected from the file's
// leading bytes, falling back to its extension.
func PlayFile(ctx context.Context, path string, driver output.Driver, p playback.Parameters, opts ...playback.Option) error {
	if err := p.Validate(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	defer f.Close()

	in := audio.Input{Name: path, Reader: f, Hint: filepath.Ext(path)}
	return playback.New(driver, opts...).Run(ctx, in, p)
}

// RenderFile plays inPath into a 16-bit WAV file at outPath without waiting
// for real time. The recording holds exactly the frames the engine
// delivered, so volume and speed are applied as they would be on a device.
func RenderFile(ctx context.Context, inPath, outPath string, p playback.Parameters, opts ...playback.Option) error {
	driver := output.WAVDriver{Path: outPath, Period: renderPeriod}
	return PlayFile(ctx, inPath, driver, p, opts...)
}

// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/ik5/oggly/audio"
)

var marker = []byte("fLaC")

// Sniff reports whether header starts a native FLAC stream.
func Sniff(header []byte) bool { return bytes.HasPrefix(header, marker) }

// frameFunc returns the next decoded frame as one sample slice per channel.
type frameFunc func() ([][]int32, error)

type source struct {
	next       frameFunc
	closer     io.Closer
	sampleRate int
	channels   int
	bitDepth   int
	scale      float32

	pending [][]int32
	pos     int
	done    error
}

func newSource(next frameFunc, closer io.Closer, sampleRate, channels, bitDepth int) *source {
	return &source{
		next:       next,
		closer:     closer,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		scale:      1 / float32(uint64(1)<<(bitDepth-1)),
	}
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BitDepth() int   { return s.bitDepth }
func (s *source) BufSize() int    { return 4096 * s.channels }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples interleaves the per-channel frame blocks into dst. A FLAC frame
// may span several calls.
func (s *source) ReadSamples(dst []float32) (int, error) {
	written := 0

	for written+s.channels <= len(dst) {
		if s.pending == nil || s.pos >= len(s.pending[0]) {
			if s.done != nil {
				break
			}
			if err := s.fill(); err != nil {
				s.done = err
				break
			}
			continue
		}

		frames := min(len(s.pending[0])-s.pos, (len(dst)-written)/s.channels)
		for f := range frames {
			for c, ch := range s.pending {
				dst[written+f*s.channels+c] = float32(ch[s.pos+f]) * s.scale
			}
		}
		s.pos += frames
		written += frames * s.channels
	}

	if written == 0 && s.done != nil {
		return 0, s.done
	}
	return written, nil
}

func (s *source) fill() error {
	block, err := s.next()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("decoding flac frame: %w", err)
	}
	if len(block) != s.channels {
		return fmt.Errorf("%w: %d != %d", ErrChannelMismatch, len(block), s.channels)
	}

	s.pending = block
	s.pos = 0
	return nil
}

// Decoder reads native FLAC streams frame by frame through mewkiz/flac.
type Decoder struct{}

// Decode implements audio.Decoder.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	head := make([]byte, len(marker))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("reading flac marker: %w", err)
	}
	if !Sniff(head) {
		return nil, ErrNotFlacFile
	}

	stream, err := flac.New(io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return nil, fmt.Errorf("reading flac metadata: %w", err)
	}

	info := stream.Info
	if info.BitsPerSample == 0 || info.BitsPerSample > 32 {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedBitDepth, info.BitsPerSample)
	}

	next := func() ([][]int32, error) {
		f, err := stream.ParseNext()
		if err != nil {
			return nil, err
		}
		block := make([][]int32, len(f.Subframes))
		for i, sub := range f.Subframes {
			block[i] = sub.Samples
		}
		return block, nil
	}

	return newSource(next, stream, int(info.SampleRate), int(info.NChannels), int(info.BitsPerSample)), nil
}

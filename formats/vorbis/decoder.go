// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/oggly/audio"
)

// Sniff accepts an Ogg page whose first packet is a Vorbis identification
// header. Other Ogg codecs such as Opus or FLAC are rejected.
func Sniff(header []byte) bool {
	if len(header) < 27 || !bytes.HasPrefix(header, []byte("OggS")) {
		return false
	}

	// The packet follows the 27-byte page header and its segment table.
	start := 27 + int(header[26])
	if start+7 > len(header) {
		return bytes.Contains(header[27:], []byte("\x01vorbis"))
	}
	return bytes.Equal(header[start:start+7], []byte("\x01vorbis"))
}

// oggReader is the part of oggvorbis.Reader the source needs, so tests can mock it.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BitDepth() int   { return 32 }
func (s *source) BufSize() int    { return 4096 * s.channels }
func (s *source) Close() error    { return nil }

// ReadSamples decodes straight into dst. oggvorbis counts interleaved values,
// the same unit audio.Source uses.
func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst)
	for i, v := range dst[:n] {
		// Lossy decoding overshoots full scale slightly.
		switch {
		case v > 1:
			dst[i] = 1
		case v < -1:
			dst[i] = -1
		}
	}

	if err != nil && err != io.EOF {
		return n, fmt.Errorf("decoding vorbis packet: %w", err)
	}
	return n, err
}

type Decoder struct{}

// Decode implements audio.Decoder.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading vorbis headers: %w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}

// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/oggly/audio"
)

const (
	formatPCM        = 0x0001
	formatFloat      = 0x0003
	formatExtensible = 0xFFFE

	// Streaming writers leave the data size at 0 or 0xFFFFFFFF.
	sizeUnknown = 0xFFFFFFFF
)

// Sniff reports whether header starts a RIFF/WAVE file.
func Sniff(header []byte) bool {
	return len(header) >= 12 &&
		bytes.Equal(header[0:4], []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WAVE"))
}

type fmtChunk struct {
	format        uint16
	channels      int
	sampleRate    int
	blockAlign    int
	bitsPerSample int
}

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	bitDepth   int
	float      bool
	remaining  int64 // bytes left in the data chunk, -1 when unknown
	buf        []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BitDepth() int   { return s.bitDepth }
func (s *wavSource) BufSize() int    { return cap(s.buf) / (s.bitDepth / 8) }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.remaining == 0 {
		return 0, io.EOF
	}

	width := s.bitDepth / 8
	want := int64(len(dst) * width)
	if s.remaining > 0 {
		want = min(want, s.remaining)
	}
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	if s.remaining > 0 {
		s.remaining -= int64(n)
	}

	samples := n / width
	s.decode(dst[:samples], s.buf[:samples*width])

	switch {
	case err == nil:
		if s.remaining == 0 {
			return samples, io.EOF
		}
		return samples, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// A data chunk cut short by the end of the file still plays.
		return samples, io.EOF
	default:
		return samples, fmt.Errorf("reading wav data: %w", err)
	}
}

func (s *wavSource) decode(dst []float32, src []byte) {
	switch {
	case s.float:
		for i := range dst {
			v := math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
			if v != v {
				v = 0
			}
			dst[i] = max(-1, min(1, v))
		}
	case s.bitDepth == 8:
		// 8-bit PCM is unsigned.
		for i := range dst {
			dst[i] = float32(int(src[i])-128) / 128
		}
	case s.bitDepth == 16:
		for i := range dst {
			dst[i] = float32(int16(binary.LittleEndian.Uint16(src[2*i:]))) / 32768
		}
	case s.bitDepth == 24:
		for i := range dst {
			b := src[3*i:]
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			dst[i] = float32(v) / 8388608
		}
	case s.bitDepth == 32:
		for i := range dst {
			dst[i] = float32(float64(int32(binary.LittleEndian.Uint32(src[4*i:]))) / 2147483648)
		}
	}
}

// Decoder reads RIFF/WAVE streams sequentially. Chunks may appear in any
// order as long as fmt precedes data; unknown chunks are skipped.
type Decoder struct{}

// Decode implements audio.Decoder.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading RIFF header: %w", err)
	}
	if !Sniff(header) {
		return nil, ErrNotWavFile
	}

	var (
		f      *fmtChunk
		chunk  [8]byte
		parsed fmtChunk
	)
	for {
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrMissingDataChunk
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}

		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if err := parseFmt(r, size, &parsed); err != nil {
				return nil, err
			}
			f = &parsed

		case "data":
			if f == nil {
				return nil, ErrMissingFormatChunk
			}

			remaining := int64(size)
			if size == 0 || size == sizeUnknown {
				remaining = -1
			}

			return &wavSource{
				r:          r,
				sampleRate: f.sampleRate,
				channels:   f.channels,
				bitDepth:   f.bitsPerSample,
				float:      f.format == formatFloat,
				remaining:  remaining,
				buf:        make([]byte, 4096*f.blockAlign),
			}, nil

		default:
			// Chunks are padded to an even size.
			skip := int64(size) + int64(size&1)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
		}
	}
}

func parseFmt(r io.Reader, size uint32, f *fmtChunk) error {
	if size < 16 || size > 1024 {
		return fmt.Errorf("%w: size %d", ErrInvalidFormatChunk, size)
	}

	body := make([]byte, size+size&1)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("reading fmt chunk: %w", err)
	}

	f.format = binary.LittleEndian.Uint16(body[0:2])
	f.channels = int(binary.LittleEndian.Uint16(body[2:4]))
	f.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
	f.blockAlign = int(binary.LittleEndian.Uint16(body[12:14]))
	f.bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))

	if f.format == formatExtensible {
		// cbSize(2) validBits(2) channelMask(4) then the sub-format GUID,
		// whose first two bytes carry the actual format tag.
		if size < 40 {
			return fmt.Errorf("%w: extensible fmt chunk of %d bytes", ErrInvalidFormatChunk, size)
		}
		f.format = binary.LittleEndian.Uint16(body[24:26])
	}

	if f.channels <= 0 || f.sampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFormatChunk, f.channels, f.sampleRate)
	}

	switch {
	case f.format == formatPCM && (f.bitsPerSample == 8 || f.bitsPerSample == 16 ||
		f.bitsPerSample == 24 || f.bitsPerSample == 32):
	case f.format == formatFloat && f.bitsPerSample == 32:
	default:
		return fmt.Errorf("%w: format 0x%04x with %d bits", ErrUnsupportedEncoding, f.format, f.bitsPerSample)
	}

	if f.blockAlign != f.channels*f.bitsPerSample/8 {
		return fmt.Errorf("%w: block align %d for %d channels of %d bits",
			ErrInvalidFormatChunk, f.blockAlign, f.channels, f.bitsPerSample)
	}

	return nil
}

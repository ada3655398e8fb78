// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var rawMagic = []byte("RAW!")

// rawDecoder understands a tiny test container:
// "RAW!" + channels (1 byte) + sample rate (uint32 LE) + int16 LE samples.
type rawDecoder struct{}

func (rawDecoder) Decode(r io.Reader) (Source, error) {
	hdr := make([]byte, 9)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("raw header: %w", err)
	}
	if !bytes.Equal(hdr[:4], rawMagic) {
		return nil, fmt.Errorf("%w: bad raw magic", ErrUnsupportedFormat)
	}

	return &rawSource{
		r:          r,
		channels:   int(hdr[4]),
		sampleRate: int(binary.LittleEndian.Uint32(hdr[5:9])),
	}, nil
}

func sniffRaw(header []byte) bool { return bytes.HasPrefix(header, rawMagic) }

type rawSource struct {
	r          io.Reader
	channels   int
	sampleRate int
	buf        []byte
	closed     bool
}

func (s *rawSource) SampleRate() int { return s.sampleRate }
func (s *rawSource) Channels() int   { return s.channels }
func (s *rawSource) BitDepth() int   { return 16 }
func (s *rawSource) BufSize() int    { return 1024 }

func (s *rawSource) Close() error {
	s.closed = true
	return nil
}

func (s *rawSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf) < 2*len(dst) {
		s.buf = make([]byte, 2*len(dst))
	}
	s.buf = s.buf[:2*len(dst)]

	n, err := io.ReadFull(s.r, s.buf)
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}

	switch err {
	case nil:
		return samples, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return samples, io.EOF
	default:
		return samples, fmt.Errorf("raw samples: %w", err)
	}
}

// rawBytes builds a RAW! stream holding samples.
func rawBytes(channels, sampleRate int, samples []int16) []byte {
	buf := new(bytes.Buffer)
	buf.Write(rawMagic)
	buf.WriteByte(byte(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// rampSamples returns n int16 samples counting up from 0.
func rampSamples(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i)
	}
	return out
}

// sourceDecoder returns a fixed Source regardless of input.
type sourceDecoder struct{ src Source }

func (d sourceDecoder) Decode(io.Reader) (Source, error) { return d.src, nil }

// errDecoder always fails with err.
type errDecoder struct{ err error }

func (d errDecoder) Decode(io.Reader) (Source, error) { return nil, d.err }

func newRawRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("raw", rawDecoder{}, sniffRaw, "rw", ".raw")
	return reg
}

// drain reads src to EOF with a buffer of size bufLen.
func drain(src Source, bufLen int) ([]float32, error) {
	buf := make([]float32, bufLen)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

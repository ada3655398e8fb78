// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/oggly/audio"
)

type chunk struct {
	id   string
	body []byte
}

func fmtBody(format uint16, channels, rate, bits int) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], format)
	binary.LittleEndian.PutUint16(b[2:], uint16(channels))
	binary.LittleEndian.PutUint32(b[4:], uint32(rate))
	binary.LittleEndian.PutUint32(b[8:], uint32(rate*channels*bits/8))
	binary.LittleEndian.PutUint16(b[12:], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(b[14:], uint16(bits))
	return b
}

func extensibleBody(sub uint16, channels, rate, bits int) []byte {
	b := append(fmtBody(formatExtensible, channels, rate, bits), make([]byte, 24)...)
	binary.LittleEndian.PutUint16(b[16:], 22)
	binary.LittleEndian.PutUint16(b[18:], uint16(bits))
	binary.LittleEndian.PutUint16(b[24:], sub)
	return b
}

func riff(chunks ...chunk) []byte {
	body := new(bytes.Buffer)
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		_ = binary.Write(body, binary.LittleEndian, uint32(len(c.body)))
		body.Write(c.body)
		if len(c.body)%2 == 1 {
			body.WriteByte(0)
		}
	}

	out := new(bytes.Buffer)
	out.WriteString("RIFF")
	_ = binary.Write(out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func readAll(t *testing.T, src audio.Source) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 7)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestSniff(t *testing.T) {
	t.Parallel()

	if !Sniff(riff()) {
		t.Error("Sniff() rejected a RIFF/WAVE header")
	}
	for _, h := range [][]byte{nil, []byte("RIFF"), []byte("RIFF\x00\x00\x00\x00AVI "), []byte("OggS")} {
		if Sniff(h) {
			t.Errorf("Sniff(%q) = true", h)
		}
	}
}

func TestDecoder_Encodings(t *testing.T) {
	t.Parallel()

	f32 := func(vs ...float32) []byte {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
		}
		return b
	}

	tests := []struct {
		name string
		fmt  []byte
		data []byte
		bits int
		want []float32
	}{
		{
			name: "pcm 8",
			fmt:  fmtBody(formatPCM, 1, 8000, 8),
			data: []byte{128, 0, 255},
			bits: 8,
			want: []float32{0, -1, 127.0 / 128},
		},
		{
			name: "pcm 16",
			fmt:  fmtBody(formatPCM, 2, 44100, 16),
			data: []byte{0x00, 0x40, 0x00, 0xC0},
			bits: 16,
			want: []float32{0.5, -0.5},
		},
		{
			name: "pcm 24",
			fmt:  fmtBody(formatPCM, 1, 48000, 24),
			data: []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0x80},
			bits: 24,
			want: []float32{0.5, -1},
		},
		{
			name: "pcm 32",
			fmt:  fmtBody(formatPCM, 1, 48000, 32),
			data: []byte{0x00, 0x00, 0x00, 0x40},
			bits: 32,
			want: []float32{0.5},
		},
		{
			name: "float 32 clamped",
			fmt:  fmtBody(formatFloat, 1, 48000, 32),
			data: f32(0.25, 1.5, -2),
			bits: 32,
			want: []float32{0.25, 1, -1},
		},
		{
			name: "extensible pcm 16",
			fmt:  extensibleBody(formatPCM, 1, 16000, 16),
			data: []byte{0x00, 0x20},
			bits: 16,
			want: []float32{0.25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := riff(chunk{"fmt ", tt.fmt}, chunk{"data", tt.data})
			src, err := Decoder{}.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if src.BitDepth() != tt.bits {
				t.Errorf("BitDepth() = %d, want %d", src.BitDepth(), tt.bits)
			}

			got := readAll(t, src)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_SkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	data := riff(
		chunk{"LIST", []byte("INFOISFT\x03\x00\x00\x00ab")},
		chunk{"fmt ", fmtBody(formatPCM, 1, 8000, 16)},
		chunk{"fact", []byte{1, 2, 3}},
		chunk{"data", []byte{0x00, 0x40, 0x00, 0x40}},
		chunk{"id3 ", []byte("trailing tag")},
	)

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 1 {
		t.Fatalf("layout = %d ch @ %d Hz", src.Channels(), src.SampleRate())
	}

	// The trailing chunk after data must not be played.
	if got := readAll(t, src); len(got) != 2 {
		t.Errorf("got %d samples, want 2", len(got))
	}
}

func TestDecoder_UnknownDataSizeReadsToEnd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WritePCM16(&buf, 8000, 1, []int16{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[40:44], sizeUnknown)

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := readAll(t, src); len(got) != 5 {
		t.Errorf("got %d samples, want 5", len(got))
	}
}

func TestDecoder_TruncatedDataStillPlays(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WritePCM16(&buf, 8000, 2, make([]int16, 100)); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(buf.Bytes()[:44+61]))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := readAll(t, src); len(got) != 30 {
		t.Errorf("got %d samples, want 30", len(got))
	}
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "not riff", data: []byte("NOT A WAV FILE DATA"), want: ErrNotWavFile},
		{name: "avi", data: []byte("RIFF\x04\x00\x00\x00AVI "), want: ErrNotWavFile},
		{name: "truncated header", data: []byte("RIFF\x00"), want: io.ErrUnexpectedEOF},
		{
			name: "data before fmt",
			data: riff(chunk{"data", []byte{0, 0}}),
			want: ErrMissingFormatChunk,
		},
		{
			name: "no data chunk",
			data: riff(chunk{"fmt ", fmtBody(formatPCM, 1, 8000, 16)}),
			want: ErrMissingDataChunk,
		},
		{
			name: "short fmt",
			data: riff(chunk{"fmt ", []byte{1, 0, 1, 0}}),
			want: ErrInvalidFormatChunk,
		},
		{
			name: "zero channels",
			data: riff(chunk{"fmt ", fmtBody(formatPCM, 0, 8000, 16)}, chunk{"data", nil}),
			want: ErrInvalidFormatChunk,
		},
		{
			name: "adpcm",
			data: riff(chunk{"fmt ", fmtBody(0x0002, 1, 8000, 4)}, chunk{"data", nil}),
			want: ErrUnsupportedEncoding,
		},
		{
			name: "pcm 12 bit",
			data: riff(chunk{"fmt ", fmtBody(formatPCM, 1, 8000, 12)}, chunk{"data", nil}),
			want: ErrUnsupportedEncoding,
		},
		{
			name: "float 64",
			data: riff(chunk{"fmt ", fmtBody(formatFloat, 1, 8000, 64)}, chunk{"data", nil}),
			want: ErrUnsupportedEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestErrors_Classification(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrNotWavFile, ErrUnsupportedEncoding} {
		if !errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("%v does not wrap audio.ErrUnsupportedFormat", err)
		}
	}
	for _, err := range []error{ErrMissingFormatChunk, ErrInvalidFormatChunk, ErrMissingDataChunk} {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("%v must read as a corrupt stream, not an unsupported one", err)
		}
	}
}

func BenchmarkDecoder_ReadSamples(b *testing.B) {
	var buf bytes.Buffer
	_ = WritePCM16(&buf, 44100, 2, make([]int16, 44100*2))
	data := buf.Bytes()
	dst := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(dst); err != nil {
				break
			}
		}
	}
}

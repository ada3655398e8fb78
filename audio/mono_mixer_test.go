// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"

	"github.com/ik5/oggly/internal/audiotest"
)

func TestMonoMixer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		waveform func(sample, channel int) float32
		want     float32
	}{
		{
			name:     "mono passthrough",
			channels: 1,
			waveform: func(int, int) float32 { return 0.3 },
			want:     0.3,
		},
		{
			name:     "stereo average",
			channels: 2,
			waveform: func(_, ch int) float32 { return []float32{0.2, 0.6}[ch] },
			want:     0.4,
		},
		{
			name:     "six channel average",
			channels: 6,
			waveform: func(_, ch int) float32 { return float32(ch) / 10 },
			want:     0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewMockSource(8000, tt.channels, 500, tt.waveform)
			m := NewMonoMixer(src)

			if m.Channels() != 1 || m.SampleRate() != 8000 {
				t.Fatalf("layout = %d ch @ %d Hz, want 1 ch @ 8000 Hz", m.Channels(), m.SampleRate())
			}

			out, err := drain(m, 128)
			if err != nil {
				t.Fatalf("drain() error = %v", err)
			}
			if len(out) != 500 {
				t.Fatalf("got %d frames, want 500", len(out))
			}
			for i, v := range out {
				if math.Abs(float64(v-tt.want)) > 1e-6 {
					t.Fatalf("frame %d = %v, want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestMonoMixer_EmptyDst(t *testing.T) {
	t.Parallel()

	m := NewMonoMixer(audiotest.NewSilentSource(8000, 2, 10))
	if n, err := m.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestMonoMixer_CloseReachesSource(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 2, 10)
	if err := NewMonoMixer(src).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.Closed() {
		t.Error("source not closed")
	}
}

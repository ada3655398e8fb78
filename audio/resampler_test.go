// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/ik5/oggly/internal/audiotest"
)

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		srcRate  int
		dstRate  int
		channels int
		frames   int
	}{
		{name: "downsample 48k to 16k", srcRate: 48000, dstRate: 16000, channels: 1, frames: 48000},
		{name: "upsample 8k to 44.1k", srcRate: 8000, dstRate: 44100, channels: 2, frames: 8000},
		{name: "44.1k to 48k stereo", srcRate: 44100, dstRate: 48000, channels: 2, frames: 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, tt.channels, tt.frames, 440)
			r := NewResampler(src, tt.dstRate)

			if r.SampleRate() != tt.dstRate {
				t.Errorf("SampleRate() = %d, want %d", r.SampleRate(), tt.dstRate)
			}
			if r.Channels() != tt.channels {
				t.Errorf("Channels() = %d, want %d", r.Channels(), tt.channels)
			}

			out, err := drain(r, 1024*tt.channels)
			if err != nil {
				t.Fatalf("drain() error = %v", err)
			}
			if len(out)%tt.channels != 0 {
				t.Fatalf("output has %d samples, not frame aligned", len(out))
			}

			want := float64(tt.frames) * float64(tt.dstRate) / float64(tt.srcRate)
			got := float64(len(out) / tt.channels)
			if math.Abs(got-want) > want*0.01+4 {
				t.Errorf("output frames = %v, want ≈%v", got, want)
			}
		})
	}
}

func TestResampler_ConstantStaysConstant(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(44100, 1, 4410, 0.25)
	out, err := drain(NewResampler(src, 22050), 512)
	if err != nil {
		t.Fatalf("drain() error = %v", err)
	}

	for i, v := range out {
		if math.Abs(float64(v)-0.25) > 1e-5 {
			t.Fatalf("sample %d = %v, want 0.25", i, v)
		}
	}
}

func TestResampler_RampEdgesStayInRange(t *testing.T) {
	t.Parallel()

	const frames, channels = 200, 2
	src := audiotest.NewRampSource(8000, channels, frames, frames)
	out, err := drain(NewResampler(src, 44100), 256*channels)
	if err != nil {
		t.Fatalf("drain() error = %v", err)
	}
	if len(out) < 2*channels {
		t.Fatalf("drain() = %d samples, want a resampled ramp", len(out))
	}

	const tol = 1e-6
	last := float32(frames-1) / frames
	prev := float32(0)
	for i := 0; i < len(out); i += channels {
		v := out[i]
		if v < -tol || v > last+tol {
			t.Fatalf("frame %d = %v, outside the input range [0, %v]", i/channels, v, last)
		}
		if v < prev-tol {
			t.Fatalf("frame %d = %v fell back from %v", i/channels, v, prev)
		}
		if out[i+1] != v {
			t.Fatalf("frame %d: channels differ, %v and %v", i/channels, v, out[i+1])
		}
		prev = v
	}

	if first := out[0]; first > 1.0/frames+tol {
		t.Errorf("first frame = %v, want the start of the ramp", first)
	}
	if end := out[len(out)-channels]; end < float32(frames-2)/frames-tol {
		t.Errorf("last frame = %v, want the final segment of the ramp", end)
	}
}

func TestResampler_RejectsMisalignedDst(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(8000, 2, 100), 16000)
	if _, err := r.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_PropagatesSourceError(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 1000)
	src.FailAfter = 100

	_, err := drain(NewResampler(src, 16000), 64)
	if !errors.Is(err, audiotest.ErrInjected) {
		t.Errorf("drain() error = %v, want ErrInjected", err)
	}
}

func BenchmarkResampler(b *testing.B) {
	buf := make([]float32, 4096)

	for b.Loop() {
		src := audiotest.NewSineSource(44100, 2, 44100, 440)
		r := NewResampler(src, 48000)
		for {
			if _, err := r.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}

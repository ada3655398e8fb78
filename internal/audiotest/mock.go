// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides synthetic sources and readers for tests.
package audiotest

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
)

// ErrInjected is returned by the failing sources and readers in this package.
var ErrInjected = errors.New("audiotest: injected failure")

// MockSource is a test helper that generates audio data for testing.
// It implements the audio.Source interface (without importing it to avoid cycles).
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	waveform     func(sample int, channel int) float32

	// FailAfter makes ReadSamples return FailErr once this many frames were
	// produced. Zero disables the failure.
	FailAfter int
	FailErr   error

	closed atomic.Bool
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
// waveform is a function that generates sample values given sample index and channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return 0.0
	})
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return value
	})
}

// NewRampSource creates a mock source whose sample value encodes its frame
// index, so tests can check ordering: frame i carries float32(i)/scale.
func NewRampSource(sampleRate, channels, totalSamples int, scale float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		return float32(sample) / scale
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BitDepth() int   { return 16 }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed.Load() }

// Reset resets the generated sample counter to allow re-reading
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.FailAfter > 0 && m.generated >= m.FailAfter {
		err := m.FailErr
		if err == nil {
			err = ErrInjected
		}
		return 0, err
	}
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)
	if m.FailAfter > 0 {
		framesToWrite = min(framesToWrite, m.FailAfter-m.generated)
	}

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}

// FailingReader serves Data and then fails every read with Err (ErrInjected
// when nil) once Limit bytes were delivered. A Limit beyond len(Data) makes it
// a plain reader ending in io.EOF.
type FailingReader struct {
	Data  []byte
	Limit int
	Err   error

	off int
}

func (f *FailingReader) Read(p []byte) (int, error) {
	if f.off >= f.Limit && f.Limit < len(f.Data) {
		if f.Err != nil {
			return 0, f.Err
		}
		return 0, ErrInjected
	}
	if f.off >= len(f.Data) {
		return 0, io.EOF
	}

	end := min(len(f.Data), f.off+len(p))
	if f.Limit < len(f.Data) {
		end = min(end, f.Limit)
	}
	n := copy(p, f.Data[f.off:end])
	f.off += n
	return n, nil
}

// CloseRecorder wraps a reader and records whether Close was called.
type CloseRecorder struct {
	io.Reader
	closed atomic.Bool
}

func (c *CloseRecorder) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (c *CloseRecorder) Closed() bool { return c.closed.Load() }

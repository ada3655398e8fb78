// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/formats/wav"
	"github.com/ik5/oggly/internal/outputtest"
)

const testRate = 8000

// fixture builds a 16-bit WAV whose frame i carries rampValue(i) on every channel.
func fixture(t *testing.T, channels, frames int) []byte {
	t.Helper()

	samples := make([]int16, 0, channels*frames)
	for i := range frames {
		for range channels {
			samples = append(samples, rampValue(i))
		}
	}

	var buf bytes.Buffer
	if err := wav.WritePCM16(&buf, testRate, channels, samples); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}
	return buf.Bytes()
}

func rampValue(i int) int16 { return int16((i%2000)*16 - 16000) }

func decoded(i int) float32 { return float32(rampValue(i)) / 32768 }

func wavInput(t *testing.T, channels, frames int) audio.Input {
	t.Helper()
	return audio.Input{Name: "fixture.wav", Reader: bytes.NewReader(fixture(t, channels, frames)), Hint: ".wav"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects state transitions from the engine hook.
type recorder struct {
	mtx   sync.Mutex
	steps []State
}

func (r *recorder) hook(_ *Session, _, to State) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.steps = append(r.steps, to)
}

func (r *recorder) states() []State {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return append([]State(nil), r.steps...)
}

type harness struct {
	engine *Engine
	driver *outputtest.Driver
	reader *sdkmetric.ManualReader
	trail  *recorder
}

func newHarness(t *testing.T, drv *outputtest.Driver, opts ...Option) *harness {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	if drv == nil {
		drv = &outputtest.Driver{}
	}
	trail := &recorder{}

	base := []Option{
		WithLogger(discardLogger()),
		WithMetrics(m),
		WithChunkFrames(512),
		WithFramesPerPull(256),
		WithBufferLatency(50 * time.Millisecond),
		WithStateHook(trail.hook),
	}

	return &harness{
		engine: New(drv, append(base, opts...)...),
		driver: drv,
		reader: reader,
		trail:  trail,
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("session still %s after 10s", s.State())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s data is %T, want Sum[int64]", name, m.Data)
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// blockingReader blocks every Read until Close.
type blockingReader struct {
	once   sync.Once
	closed chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{closed: make(chan struct{})}
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.closed
	return 0, io.ErrClosedPipe
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// stallingReader serves data, then blocks every further Read until Close.
type stallingReader struct {
	*blockingReader
	data    *bytes.Reader
	stalled atomic.Bool
}

func newStallingReader(data []byte) *stallingReader {
	return &stallingReader{blockingReader: newBlockingReader(), data: bytes.NewReader(data)}
}

func (r *stallingReader) Read(p []byte) (int, error) {
	if r.data.Len() > 0 {
		return r.data.Read(p)
	}
	r.stalled.Store(true)
	return r.blockingReader.Read(p)
}

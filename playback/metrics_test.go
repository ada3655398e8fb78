// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ik5/oggly/audio"
)

func TestMetrics_CompletedSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	const frames = testRate / 2

	if err := h.engine.Run(context.Background(), wavInput(t, 1, frames), DefaultParameters()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rm := collect(t, h.reader)

	if got := sumOf(t, rm, "oggly.playback.frames_decoded"); got != frames {
		t.Errorf("frames_decoded = %d, want %d", got, frames)
	}
	if got := sumOf(t, rm, "oggly.playback.frames_output"); got != frames {
		t.Errorf("frames_output = %d, want %d", got, frames)
	}
	if got := sumOf(t, rm, "oggly.playback.active_sessions"); got != 0 {
		t.Errorf("active_sessions = %d, want 0", got)
	}

	m := findMetric(rm, "oggly.playback.sessions")
	if m == nil {
		t.Fatal("sessions counter not recorded")
	}
	sum := m.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("sessions has %d data points, want 1", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if v, _ := dp.Attributes.Value("outcome"); v.AsString() != OutcomeCompleted {
		t.Errorf("outcome = %q, want %q", v.AsString(), OutcomeCompleted)
	}
	if v, _ := dp.Attributes.Value("format"); v.AsString() != "wav" {
		t.Errorf("format = %q, want wav", v.AsString())
	}

	load := findMetric(rm, "oggly.playback.load.duration")
	if load == nil {
		t.Fatal("load duration not recorded")
	}
	hist := load.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("load duration data points = %+v, want one observation", hist.DataPoints)
	}
}

func TestMetrics_FailedSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	in := audio.Input{Reader: bytes.NewReader([]byte("plain text, no audio here"))}
	if err := h.engine.Run(context.Background(), in, DefaultParameters()); err == nil {
		t.Fatal("Run() of text input succeeded")
	}

	rm := collect(t, h.reader)
	m := findMetric(rm, "oggly.playback.sessions")
	if m == nil {
		t.Fatal("sessions counter not recorded")
	}

	sum := m.Data.(metricdata.Sum[int64])
	want := attribute.NewSet(attribute.String("outcome", OutcomeFailed), attribute.String("format", ""))
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) && dp.Value == 1 {
			return
		}
	}
	t.Errorf("sessions data points = %+v, want one failed session", sum.DataPoints)
}

func TestSession_Span(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarness(t, nil, WithTracerProvider(tp))
	if err := h.engine.Run(context.Background(), wavInput(t, 1, 200), DefaultParameters()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "playback.session" {
		t.Errorf("span name = %q", spans[0].Name())
	}

	attrs := attribute.NewSet(spans[0].Attributes()...)
	if v, _ := attrs.Value("outcome"); v.AsString() != OutcomeCompleted {
		t.Errorf("span outcome = %q, want %q", v.AsString(), OutcomeCompleted)
	}
	if v, _ := attrs.Value("frames"); v.AsInt64() != 200 {
		t.Errorf("span frames = %d, want 200", v.AsInt64())
	}
}

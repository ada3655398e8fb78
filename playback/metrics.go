// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName scopes the meter and tracer of this package.
const instrumentationName = "github.com/ik5/oggly/playback"

// Session outcomes recorded on the sessions counter and the session span.
const (
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeCanceled  = "canceled"
	OutcomeFailed    = "failed"
)

// Metrics holds the OpenTelemetry instruments of the playback engine. The
// instruments are safe for concurrent use.
type Metrics struct {
	// Sessions counts finished sessions. Attributes: outcome, format.
	Sessions metric.Int64Counter

	// ActiveSessions tracks sessions between Play and teardown.
	ActiveSessions metric.Int64UpDownCounter

	// FramesDecoded counts frames read from decoders.
	FramesDecoded metric.Int64Counter

	// FramesOutput counts frames handed to output devices.
	FramesOutput metric.Int64Counter

	// Underruns counts device pulls that got fewer frames than requested
	// while production was still running.
	Underruns metric.Int64Counter

	// LoadDuration tracks the time from Play to the first playable state.
	LoadDuration metric.Float64Histogram
}

var loadBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(instrumentationName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("oggly.playback.sessions",
		metric.WithDescription("Finished playback sessions by outcome and format."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("oggly.playback.active_sessions",
		metric.WithDescription("Number of live playback sessions."),
	); err != nil {
		return nil, err
	}
	if met.FramesDecoded, err = m.Int64Counter("oggly.playback.frames_decoded",
		metric.WithDescription("Frames read from decoders."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}
	if met.FramesOutput, err = m.Int64Counter("oggly.playback.frames_output",
		metric.WithDescription("Frames delivered to output devices."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}
	if met.Underruns, err = m.Int64Counter("oggly.playback.underruns",
		metric.WithDescription("Device pulls short of frames while production was running."),
	); err != nil {
		return nil, err
	}
	if met.LoadDuration, err = m.Float64Histogram("oggly.playback.load.duration",
		metric.WithDescription("Time from Play until the stream and device are open."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(loadBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter provider. Register a
// provider with otel.SetMeterProvider before the first call to export them.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("playback: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSession counts one finished session.
func (m *Metrics) RecordSession(ctx context.Context, outcome, format string) {
	m.Sessions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("format", format),
		),
	)
}

// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/formats"
	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/ringbuf"
)

const (
	DefaultChunkFrames   = 2048
	DefaultBufferLatency = 250 * time.Millisecond
	DefaultMaxChannels   = 2
)

// StateHook observes every state change of every session. It runs on the
// goroutine making the change and must not block.
type StateHook func(s *Session, from, to State)

// Engine starts playback sessions on one output driver.
type Engine struct {
	driver        output.Driver
	registry      *audio.Registry
	logger        *slog.Logger
	metrics       *Metrics
	tracer        trace.Tracer
	chunkFrames   int
	latency       time.Duration
	policy        ringbuf.Policy
	drainTimeout  time.Duration
	maxChannels   int
	sampleRate    int
	framesPerPull int
	hook          StateHook
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the decoders used to open inputs. Default: formats.Default().
func WithRegistry(reg *audio.Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

// WithLogger sets the logger sessions log to. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the instruments sessions record to. Default: DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets where session spans go. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(instrumentationName) }
}

// WithChunkFrames sets how many output frames the producer prepares per step.
func WithChunkFrames(n int) Option {
	return func(e *Engine) { e.chunkFrames = n }
}

// WithBufferLatency sizes the ring buffer to hold d of audio.
func WithBufferLatency(d time.Duration) Option {
	return func(e *Engine) { e.latency = d }
}

// WithBufferPolicy sets what the producer does on a full ring buffer.
func WithBufferPolicy(p ringbuf.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithDrainTimeout bounds the Draining state. Default: buffer latency plus one second.
func WithDrainTimeout(d time.Duration) Option {
	return func(e *Engine) { e.drainTimeout = d }
}

// WithMaxChannels downmixes inputs with more channels than n to mono.
// Default: 2. 0 disables the limit.
func WithMaxChannels(n int) Option {
	return func(e *Engine) { e.maxChannels = n }
}

// WithSampleRate resamples every input to hz. Default: 0, the input's own rate.
func WithSampleRate(hz int) Option {
	return func(e *Engine) { e.sampleRate = hz }
}

// WithFramesPerPull sets the device block size. Default: output.DefaultFramesPerPull.
func WithFramesPerPull(n int) Option {
	return func(e *Engine) { e.framesPerPull = n }
}

// WithStateHook registers h for every session of the engine.
func WithStateHook(h StateHook) Option {
	return func(e *Engine) { e.hook = h }
}

// New returns an engine that plays through driver. Unset options take their
// defaults.
func New(driver output.Driver, opts ...Option) *Engine {
	e := &Engine{
		driver:      driver,
		chunkFrames: DefaultChunkFrames,
		latency:     DefaultBufferLatency,
		policy:      ringbuf.PolicyBlock,
		maxChannels: DefaultMaxChannels,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = formats.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = DefaultMetrics()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}
	if e.chunkFrames <= 0 {
		e.chunkFrames = DefaultChunkFrames
	}
	if e.latency <= 0 {
		e.latency = DefaultBufferLatency
	}
	if e.drainTimeout <= 0 {
		e.drainTimeout = e.latency + time.Second
	}
	e.maxChannels = max(e.maxChannels, 0)
	e.sampleRate = max(e.sampleRate, 0)

	return e
}

// Play validates p, then opens in and plays it asynchronously. Validation
// failures return before any session exists. Everything after that, including
// decode and device errors, is reported through the returned Session.
//
// Cancelling ctx tears the session down at once and ends it in Stopped.
func (e *Engine) Play(ctx context.Context, in audio.Input, p Parameters) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.Reader == nil {
		return nil, fmt.Errorf("%w: nil input reader", audio.ErrInvalidParameter)
	}
	if e.driver == nil {
		return nil, ErrNoDriver
	}

	s := newSession(ctx, e, uuid.NewString(), in, p)
	if err := s.transition(Loading); err != nil {
		s.cancel()
		return nil, err
	}

	e.metrics.ActiveSessions.Add(ctx, 1)
	go s.run()

	return s, nil
}

// Run plays in to completion. It returns nil when the input played out or
// ctx was cancelled, and the session error otherwise.
func (e *Engine) Run(ctx context.Context, in audio.Input, p Parameters) error {
	s, err := e.Play(ctx, in, p)
	if err != nil {
		return err
	}
	<-s.Done()
	return s.Err()
}

func (e *Engine) bufferFrames(rate int) int {
	frames := int(int64(rate) * int64(e.latency) / int64(time.Second))
	return max(frames, 2*e.chunkFrames)
}

// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/ringbuf"
)

// superviseInterval is how often the supervisor checks the device and the
// drain progress.
const superviseInterval = 10 * time.Millisecond

// Session is one playback of one input. It is created by Engine.Play and owns
// the stream, ring buffer and device until it reaches Stopped or Failed.
// All methods are safe for concurrent use.
type Session struct {
	engine *Engine
	id     string
	in     audio.Input
	logger *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	stopCtx     context.Context
	requestStop context.CancelFunc

	params atomic.Pointer[Parameters]
	state  atomic.Int32

	mtx     sync.Mutex // serializes transitions; guards format, err, outcome
	format  audio.Format
	err     error
	outcome string

	// Set by load before the device opens, read-only afterwards.
	stream   *audio.Stream
	buf      *ringbuf.Buffer
	dev      output.Device
	channels int

	wake     chan struct{}
	produced chan struct{}
	done     chan struct{}

	position  atomic.Int64
	underruns atomic.Int64

	// Owned by the supervisor, then by finish.
	reportedPosition  int64
	reportedUnderruns int64

	inputOnce sync.Once
	inputErr  error
}

func newSession(parent context.Context, e *Engine, id string, in audio.Input, p Parameters) *Session {
	ctx, cancel := context.WithCancel(parent)
	stopCtx, requestStop := context.WithCancel(context.Background())

	s := &Session{
		engine:      e,
		id:          id,
		in:          in,
		logger:      e.logger.With("session", id),
		ctx:         ctx,
		cancel:      cancel,
		stopCtx:     stopCtx,
		requestStop: requestStop,
		wake:        make(chan struct{}, 1),
		produced:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	s.params.Store(&p)
	s.state.Store(int32(Idle))

	return s
}

// ID identifies the session in logs and traces.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Format is the stream format as played, after any downmix or resampling.
// It is the zero Format until loading finishes.
func (s *Session) Format() audio.Format {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.format
}

// Parameters returns the current volume and speed.
func (s *Session) Parameters() Parameters { return *s.params.Load() }

// Position counts frames delivered to the device so far.
func (s *Session) Position() int64 { return s.position.Load() }

// Elapsed converts Position to playing time at the output rate.
func (s *Session) Elapsed() time.Duration {
	rate := s.Format().SampleRate
	if rate <= 0 {
		return 0
	}
	return time.Duration(s.Position()) * time.Second / time.Duration(rate)
}

// Done is closed once the session is Stopped or Failed and its resources are released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the error that failed the session, or nil.
func (s *Session) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.err
}

// Outcome tells how a finished session ended: OutcomeCompleted,
// OutcomeStopped, OutcomeCanceled or OutcomeFailed. It is empty before Done.
func (s *Session) Outcome() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.outcome
}

// Wait blocks until the session is done or ctx ends, and returns Err.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause suspends decoding and makes the device play silence.
func (s *Session) Pause() error { return s.move(Paused, Playing) }

// Resume continues a paused session.
func (s *Session) Resume() error { return s.move(Playing, Paused) }

// Stop ends the session without waiting for it. A playing or paused session
// first drains what is already buffered; a loading one stops at once.
// Calling Stop again, or on a finished session, does nothing.
func (s *Session) Stop() {
	s.requestStop()
	s.notify()
}

// SetVolume replaces the volume from the next chunk on.
func (s *Session) SetVolume(v float64) error {
	if err := audio.ValidateVolume(v); err != nil {
		return err
	}
	s.update(func(p *Parameters) { p.Volume = v })
	return nil
}

// SetSpeed replaces the speed from the next chunk on.
func (s *Session) SetSpeed(speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	s.update(func(p *Parameters) { p.Speed = speed })
	return nil
}

func (s *Session) update(f func(*Parameters)) {
	for {
		old := s.params.Load()
		p := *old
		f(&p)
		if s.params.CompareAndSwap(old, &p) {
			s.logger.Debug("parameters changed", "volume", p.Volume, "speed", p.Speed)
			return
		}
	}
}

// move switches to the state to. With from given, the current state must be
// one of them; otherwise any legal transition is accepted.
func (s *Session) move(to State, from ...State) error {
	s.mtx.Lock()
	cur := State(s.state.Load())
	if (len(from) > 0 && !slices.Contains(from, cur)) || !CanTransition(cur, to) {
		s.mtx.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidState, cur, to)
	}
	s.state.Store(int32(to))
	s.mtx.Unlock()

	s.notify()
	s.logger.Debug("state changed", "from", cur, "to", to)
	if s.engine.hook != nil {
		s.engine.hook(s, cur, to)
	}
	return nil
}

func (s *Session) transition(to State) error { return s.move(to) }

func (s *Session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) run() {
	defer close(s.done)

	ctx, span := s.engine.tracer.Start(s.ctx, "playback.session",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("input.name", s.in.Name),
		),
	)
	defer span.End()

	// A blocked read only returns once its reader is closed.
	release := context.AfterFunc(s.ctx, s.closeInput)
	defer release()

	err := s.play(ctx)
	s.finish(ctx, span, err)
}

func (s *Session) play(ctx context.Context) error {
	start := time.Now()
	if err := s.load(); err != nil {
		return err
	}
	if s.stopCtx.Err() != nil || ctx.Err() != nil {
		return nil
	}

	s.engine.metrics.LoadDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("format", s.format.Container)))

	if err := s.move(Playing, Loading); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.produce(gctx)
		if err == nil {
			close(s.produced)
		}
		return err
	})
	g.Go(func() error { return s.supervise(gctx) })

	return g.Wait()
}

func (s *Session) load() error {
	release := context.AfterFunc(s.stopCtx, s.closeInput)
	defer release()

	e := s.engine
	stream, err := audio.Open(s.in, e.registry,
		audio.WithMaxChannels(e.maxChannels),
		audio.WithSampleRate(e.sampleRate),
	)
	if err != nil {
		return err
	}

	f := stream.Format()
	s.mtx.Lock()
	s.stream = stream
	s.format = f
	s.mtx.Unlock()

	s.channels = f.Channels
	s.buf = ringbuf.New(e.bufferFrames(f.SampleRate), f.Channels, e.policy)

	dev, err := e.driver.Open(output.Config{
		SampleRate:    f.SampleRate,
		Channels:      f.Channels,
		FramesPerPull: e.framesPerPull,
	}, output.PullFunc(s.pull))
	if err != nil {
		if !errors.Is(err, output.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", output.ErrDeviceUnavailable, err)
		}
		return err
	}
	s.dev = dev

	s.logger.Info("playback loaded",
		"input", s.in.Name,
		"format", f.Container,
		"channels", f.Channels,
		"rate", f.SampleRate,
		"driver", e.driver.Name(),
	)
	return nil
}

// pull is the device callback. It never blocks: anything other than Playing
// or Draining plays silence, and a short buffer plays partly silent.
func (s *Session) pull(dst []float32) int {
	switch s.State() {
	case Playing, Draining:
	default:
		return 0
	}

	n := s.buf.Pop(dst)
	if n < len(dst)/s.channels && !s.buf.Drained() {
		s.underruns.Add(1)
	}
	s.position.Add(int64(n))
	return n
}

// produce decodes, applies gain and speed, and fills the ring buffer until
// the stream ends, Stop is called or ctx is cancelled.
func (s *Session) produce(ctx context.Context) error {
	defer s.buf.CloseWrite()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := context.AfterFunc(s.stopCtx, cancel)
	defer release()
	// Stop must also reach a Next blocked in a read of the input.
	releaseInput := context.AfterFunc(s.stopCtx, s.closeInput)
	defer releaseInput()

	e := s.engine
	retimer := audio.NewRetimer(s.channels)
	var scaled []float32

	for {
		if err := s.waitWhilePaused(ctx); err != nil {
			return nil
		}

		p := *s.params.Load()
		frames := decodeFrames(e.chunkFrames, p.Speed, s.buf.Cap())

		batch, err := s.stream.Next(frames)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			if ctx.Err() != nil || s.stopCtx.Err() != nil {
				return nil
			}
			return err
		}

		if len(batch) > 0 {
			e.metrics.FramesDecoded.Add(ctx, int64(len(batch)/s.channels))

			scaled = audio.ApplyGain(scaled, batch, p.Volume)
			out, err := retimer.Process(scaled, p.Speed)
			if err != nil {
				return err
			}
			if err := s.push(ctx, out); err != nil {
				return err
			}
		}

		if eof {
			return s.push(ctx, retimer.Flush())
		}
	}
}

// decodeFrames is how many input frames to decode for one chunk of output at
// speed. The request never exceeds limit; the retimer skips whatever a faster
// speed would have consumed.
func decodeFrames(chunk int, speed float64, limit int) int {
	want := float64(chunk) * speed
	if want >= float64(limit) {
		return max(1, limit)
	}
	return max(1, int(want))
}

func (s *Session) waitWhilePaused(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.State() != Paused {
			return nil
		}

		select {
		case <-ctx.Done():
		case <-s.wake:
		}
	}
}

// push hands samples to the ring buffer. Being stopped or cancelled while
// blocked is not an error.
func (s *Session) push(ctx context.Context, samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	err := s.buf.Push(ctx, samples)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ringbuf.ErrClosed), ctx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("buffering frames: %w", err)
	}
}

// supervise starts the device once the buffer is primed, watches it for
// failures and drives Draining to its end.
func (s *Session) supervise(ctx context.Context) error {
	tick := time.NewTicker(superviseInterval)
	defer tick.Stop()

	produced := s.produced
	started := false
	draining := false
	prefill := s.buf.Cap() / 2

	var drainTimer *time.Timer
	var drainExpired <-chan time.Time
	var drainDeadline time.Time
	defer func() {
		if drainTimer != nil {
			drainTimer.Stop()
		}
	}()

	for {
		if !started && (produced == nil || s.buf.Len() >= prefill) {
			if err := s.dev.Start(); err != nil {
				return fmt.Errorf("%w: %w", output.ErrDeviceUnavailable, err)
			}
			started = true
		}
		if err := s.deviceErr(); err != nil {
			return fmt.Errorf("%w: %w", output.ErrDeviceUnavailable, err)
		}
		if draining && s.buf.Drained() {
			return s.drainDevice(ctx, drainDeadline)
		}

		select {
		case <-ctx.Done():
			return nil

		case <-produced:
			produced = nil
			if ctx.Err() != nil {
				return nil
			}
			if err := s.move(Draining, Playing, Paused); err != nil {
				return err
			}
			draining = true
			drainDeadline = time.Now().Add(s.engine.drainTimeout)
			drainTimer = time.NewTimer(s.engine.drainTimeout)
			drainExpired = drainTimer.C

		case <-drainExpired:
			s.logger.Warn("drain timed out, dropping buffered frames", "frames", s.buf.Len())
			return nil

		case <-tick.C:
			s.reportOutput(ctx)
		}
	}
}

// drainDevice waits, within what is left of the drain timeout, for a device
// that buffers on its own to play out the frames it has already pulled.
func (s *Session) drainDevice(ctx context.Context, deadline time.Time) error {
	d, ok := s.dev.(output.Drainer)
	if !ok {
		return nil
	}

	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	err := d.Drain(dctx)
	switch {
	case err == nil, ctx.Err() != nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("drain timed out, device still playing")
		return nil
	default:
		return fmt.Errorf("%w: %w", output.ErrDeviceUnavailable, err)
	}
}

func (s *Session) deviceErr() error {
	if d, ok := s.dev.(interface{ Err() error }); ok {
		return d.Err()
	}
	return nil
}

func (s *Session) reportOutput(ctx context.Context) {
	m := s.engine.metrics

	if pos := s.position.Load(); pos > s.reportedPosition {
		m.FramesOutput.Add(ctx, pos-s.reportedPosition)
		s.reportedPosition = pos
	}
	if u := s.underruns.Load(); u > s.reportedUnderruns {
		m.Underruns.Add(ctx, u-s.reportedUnderruns)
		s.reportedUnderruns = u
	}
}

func (s *Session) finish(ctx context.Context, span trace.Span, err error) {
	canceled := s.ctx.Err() != nil
	stopRequested := s.stopCtx.Err() != nil

	// Closing the input to interrupt a read shows up as a read error.
	if err != nil && (canceled || (stopRequested && s.State() == Loading)) {
		err = nil
	}

	outcome := OutcomeCompleted
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case canceled:
		outcome = OutcomeCanceled
	case stopRequested:
		outcome = OutcomeStopped
	}

	if terr := s.teardown(); terr != nil {
		s.logger.Warn("releasing session resources", "err", terr)
	}

	s.mtx.Lock()
	s.err = err
	s.outcome = outcome
	container := s.format.Container
	s.mtx.Unlock()

	to := Stopped
	if err != nil {
		to = Failed
	}
	if merr := s.move(to); merr != nil {
		s.logger.Error("finishing session", "err", merr)
	}

	mctx := context.WithoutCancel(ctx)
	s.reportOutput(mctx)
	s.engine.metrics.RecordSession(mctx, outcome, container)
	s.engine.metrics.ActiveSessions.Add(mctx, -1)

	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.String("format", container),
		attribute.Int64("frames", s.position.Load()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("playback failed", "err", err, "frames", s.position.Load())
	} else {
		s.logger.Info("playback finished", "outcome", outcome, "frames", s.position.Load())
	}

	s.cancel()
}

// teardown releases the device first so nothing pulls from a closed buffer.
func (s *Session) teardown() error {
	var errs []error

	if s.dev != nil {
		errs = append(errs, s.dev.Close())
	}
	if s.buf != nil {
		errs = append(errs, s.buf.Close())
	}
	if s.stream != nil {
		errs = append(errs, s.stream.Close())
	}

	s.closeInput()
	errs = append(errs, s.inputErr)

	return errors.Join(errs...)
}

func (s *Session) closeInput() {
	s.inputOnce.Do(func() {
		if c, ok := s.in.Reader.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.inputErr = fmt.Errorf("closing input: %w", err)
			}
		}
	})
}

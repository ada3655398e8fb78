// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// SniffLen is how many leading bytes Open inspects to detect the container.
const SniffLen = 64

// maxEmptyReads bounds how many consecutive (0, nil) reads Next tolerates from a
// decoder before returning what it has.
const maxEmptyReads = 64

type streamOptions struct {
	channels    int
	maxChannels int
	sampleRate  int
}

// StreamOption configures Open.
type StreamOption func(*streamOptions)

// WithChannels converts the decoded stream to n channels. Only 0 (keep the
// source layout) and 1 (mono downmix) are supported.
func WithChannels(n int) StreamOption {
	return func(o *streamOptions) { o.channels = n }
}

// WithMaxChannels downmixes sources carrying more than n channels to mono.
// 0 means no limit.
func WithMaxChannels(n int) StreamOption {
	return func(o *streamOptions) { o.maxChannels = n }
}

// WithSampleRate resamples the decoded stream to hz. 0 keeps the source rate.
func WithSampleRate(hz int) StreamOption {
	return func(o *streamOptions) { o.sampleRate = hz }
}

// Stream is an opened, validated input producing interleaved sample batches.
// It is sequential and non-restartable: once Next returns an error, every later
// call returns the same error.
type Stream struct {
	src    Source
	format Format
	tr     *trackingReader
	buf    []float32
	err    error
}

// Open detects the container of in, validates its header and returns a Stream
// positioned at the first frame. Detection uses the leading bytes first and
// falls back to in.Hint. Every failure is a *DecodeError.
func Open(in Input, reg *Registry, opts ...StreamOption) (*Stream, error) {
	if in.Reader == nil {
		return nil, fmt.Errorf("%w: nil input reader", ErrInvalidParameter)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidParameter)
	}

	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.channels != 0 && o.channels != 1 {
		return nil, fmt.Errorf("%w: channels %d (want 0 or 1)", ErrInvalidParameter, o.channels)
	}
	if o.sampleRate < 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidParameter, o.sampleRate)
	}
	if o.maxChannels < 0 {
		return nil, fmt.Errorf("%w: max channels %d", ErrInvalidParameter, o.maxChannels)
	}

	tr := &trackingReader{r: in.Reader}
	br := bufio.NewReaderSize(tr, 4096)

	header, err := br.Peek(SniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, classify("", err, tr)
	}
	if len(header) == 0 {
		return nil, &DecodeError{Kind: ErrCorruptStream, Err: errors.New("empty input")}
	}

	name, ok := reg.Detect(header)
	if !ok && in.Hint != "" {
		name, ok = reg.Resolve(in.Hint)
	}
	if !ok {
		return nil, &DecodeError{Kind: ErrUnsupportedFormat, Err: fmt.Errorf("unrecognized header in %q", in.Name)}
	}

	dec, ok := reg.Get(name)
	if !ok {
		return nil, &DecodeError{Kind: ErrUnsupportedFormat, Container: name}
	}

	src, err := dec.Decode(br)
	if err != nil {
		return nil, classify(name, err, tr)
	}

	if src.Channels() <= 0 || src.SampleRate() <= 0 {
		_ = src.Close()
		return nil, &DecodeError{
			Kind:      ErrCorruptStream,
			Container: name,
			Err:       fmt.Errorf("invalid layout: %d channels at %d Hz", src.Channels(), src.SampleRate()),
		}
	}

	if (o.channels == 1 || (o.maxChannels > 0 && src.Channels() > o.maxChannels)) && src.Channels() > 1 {
		src = NewMonoMixer(src)
	}
	if o.sampleRate > 0 && o.sampleRate != src.SampleRate() {
		src = NewResampler(src, o.sampleRate)
	}

	return &Stream{
		src: src,
		format: Format{
			Container:  name,
			Channels:   src.Channels(),
			SampleRate: src.SampleRate(),
			BitDepth:   src.BitDepth(),
		},
		tr: tr,
	}, nil
}

// Format returns the detected stream format after any conversion options.
func (s *Stream) Format() Format { return s.format }

// Next decodes up to frames frames and returns them interleaved. The returned
// slice is reused by the following call. At end of stream it returns io.EOF.
// A batch may be shorter than requested; it never splits a frame.
func (s *Stream) Next(frames int) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if frames <= 0 {
		return nil, fmt.Errorf("%w: frames %d", ErrInvalidParameter, frames)
	}

	channels := s.format.Channels
	want := frames * channels
	if cap(s.buf) < want {
		s.buf = make([]float32, want)
	}
	s.buf = s.buf[:want]

	total := 0
	empty := 0
	for total < want {
		n, err := s.src.ReadSamples(s.buf[total:want])
		total += n

		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = classify(s.format.Container, err, s.tr)
			}
			break
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				break
			}
			continue
		}
		empty = 0
	}

	total -= total % channels
	if total == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return s.buf[:0], nil
	}

	return s.buf[:total], nil
}

// Close releases the decoder. It does not close the input reader.
func (s *Stream) Close() error {
	if s.err == nil {
		s.err = io.EOF
	}

	if err := s.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// trackingReader remembers the first error returned by the underlying reader
// other than io.EOF, so a decoder failure can be told apart from an I/O failure
// even when the decoder swallows or replaces the original error.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}

func classify(container string, err error, tr *trackingReader) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}

	switch {
	case tr != nil && tr.err != nil:
		if !errors.Is(err, tr.err) {
			err = errors.Join(err, tr.err)
		}
		return &DecodeError{Kind: ErrIOFailure, Container: container, Err: err}
	case errors.Is(err, ErrUnsupportedFormat):
		return &DecodeError{Kind: ErrUnsupportedFormat, Container: container, Err: err}
	default:
		return &DecodeError{Kind: ErrCorruptStream, Container: container, Err: err}
	}
}

// SPDX-License-Identifier: EPL-2.0

// Package ringbuf implements the bounded frame queue between the decoding
// producer and the device callback. The producer may block; the consumer
// never does.
package ringbuf

import (
	"context"
	"fmt"
	"sync"
)

// Policy selects what Push does when the buffer is full.
type Policy int

const (
	// PolicyBlock makes Push wait for room.
	PolicyBlock Policy = iota
	// PolicyFail makes Push return ErrFull without writing.
	PolicyFail
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyFail:
		return "fail"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "block" or "fail" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "block", "":
		return PolicyBlock, nil
	case "fail":
		return PolicyFail, nil
	default:
		return 0, fmt.Errorf("ringbuf: unknown policy %q", s)
	}
}

// Buffer is a fixed capacity FIFO of interleaved frames. One producer and one
// consumer may use it concurrently.
type Buffer struct {
	mtx sync.Mutex

	data     []float32
	channels int
	capacity uint64 // frames
	policy   Policy

	// Monotonic frame cursors: 0 <= write-read <= capacity.
	write uint64
	read  uint64

	writeClosed bool
	closed      bool

	// space is closed and replaced when a waiting Push can make progress.
	space   chan struct{}
	waiting bool
}

// New returns a buffer holding up to capacityFrames frames of channels
// samples each. Both values are clamped to at least 1.
func New(capacityFrames, channels int, policy Policy) *Buffer {
	capacityFrames = max(capacityFrames, 1)
	channels = max(channels, 1)

	return &Buffer{
		data:     make([]float32, capacityFrames*channels),
		channels: channels,
		capacity: uint64(capacityFrames),
		policy:   policy,
		space:    make(chan struct{}),
	}
}

// Channels is the frame width the buffer was created with.
func (b *Buffer) Channels() int { return b.channels }

// Cap is the capacity in frames.
func (b *Buffer) Cap() int { return int(b.capacity) }

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return int(b.write - b.read)
}

// Push appends samples, which must hold whole frames. With PolicyBlock a
// slice larger than the free space is written piecewise as the consumer makes
// room; it returns ctx.Err() or ErrClosed if either ends the wait, with part
// of the slice possibly written. With PolicyFail nothing is written unless
// everything fits.
func (b *Buffer) Push(ctx context.Context, samples []float32) error {
	if len(samples)%b.channels != 0 {
		return ErrMisaligned
	}

	for len(samples) > 0 {
		b.mtx.Lock()
		if b.closed || b.writeClosed {
			b.mtx.Unlock()
			return ErrClosed
		}

		free := int(b.capacity - (b.write - b.read))
		frames := len(samples) / b.channels

		if b.policy == PolicyFail && frames > free {
			b.mtx.Unlock()
			return ErrFull
		}

		if free == 0 {
			wait := b.space
			b.waiting = true
			b.mtx.Unlock()

			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		n := min(frames, free)
		b.copyIn(samples[:n*b.channels])
		b.mtx.Unlock()

		samples = samples[n*b.channels:]
	}

	return nil
}

// copyIn writes whole frames at the write cursor. The caller holds mtx and has
// checked there is room.
func (b *Buffer) copyIn(src []float32) {
	start := int(b.write%b.capacity) * b.channels

	n := copy(b.data[start:], src)
	if n < len(src) {
		copy(b.data, src[n:])
	}

	b.write += uint64(len(src) / b.channels)
}

// Pop copies up to len(dst)/Channels() frames into dst and returns the number
// of frames copied. It never blocks; zero means nothing is buffered.
func (b *Buffer) Pop(dst []float32) int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return 0
	}

	frames := min(uint64(len(dst)/b.channels), b.write-b.read)
	if frames == 0 {
		return 0
	}

	start := int(b.read%b.capacity) * b.channels
	want := int(frames) * b.channels

	n := copy(dst[:want], b.data[start:])
	if n < want {
		copy(dst[n:want], b.data)
	}

	b.read += frames
	if b.waiting {
		b.wake()
	}

	return int(frames)
}

// CloseWrite marks the end of production. Buffered frames stay poppable.
func (b *Buffer) CloseWrite() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if !b.writeClosed {
		b.writeClosed = true
		b.wake()
	}
}

// Drained reports whether production ended and every frame was consumed.
func (b *Buffer) Drained() bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return b.closed || (b.writeClosed && b.write == b.read)
}

// Close drops buffered frames and unblocks any Push. It is idempotent.
func (b *Buffer) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.writeClosed = true
	b.read = b.write
	b.wake()

	return nil
}

// wake releases every goroutine waiting on space. The caller holds mtx.
func (b *Buffer) wake() {
	close(b.space)
	b.space = make(chan struct{})
	b.waiting = false
}

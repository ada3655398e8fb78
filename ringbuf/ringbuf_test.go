// SPDX-License-Identifier: EPL-2.0

package ringbuf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func frames(start, n, channels int) []float32 {
	out := make([]float32, n*channels)
	for i := range n {
		for c := range channels {
			out[i*channels+c] = float32(start + i)
		}
	}
	return out
}

func TestBuffer_PushPop(t *testing.T) {
	t.Parallel()

	b := New(8, 2, PolicyBlock)
	if err := b.Push(context.Background(), frames(0, 5, 2)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if b.Len() != 5 || b.Cap() != 8 || b.Channels() != 2 {
		t.Fatalf("Len/Cap/Channels = %d/%d/%d, want 5/8/2", b.Len(), b.Cap(), b.Channels())
	}

	dst := make([]float32, 6)
	if n := b.Pop(dst); n != 3 {
		t.Fatalf("Pop() = %d, want 3", n)
	}
	for i, v := range dst {
		if want := float32(i / 2); v != want {
			t.Errorf("dst[%d] = %v, want %v", i, v, want)
		}
	}

	if n := b.Pop(make([]float32, 20)); n != 2 {
		t.Errorf("Pop() = %d, want the 2 remaining frames", n)
	}
}

func TestBuffer_WrapAround(t *testing.T) {
	t.Parallel()

	b := New(5, 1, PolicyBlock)
	ctx := context.Background()
	dst := make([]float32, 3)

	next := 0
	for round := range 10 {
		if err := b.Push(ctx, frames(round*3, 3, 1)); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		n := b.Pop(dst)
		for _, v := range dst[:n] {
			if v != float32(next) {
				t.Fatalf("round %d: got frame %v, want %d", round, v, next)
			}
			next++
		}
	}
}

func TestBuffer_PopNeverBlocks(t *testing.T) {
	t.Parallel()

	b := New(4, 2, PolicyBlock)

	done := make(chan int)
	go func() { done <- b.Pop(make([]float32, 8)) }()

	select {
	case n := <-done:
		if n != 0 {
			t.Errorf("Pop() on empty buffer = %d, want 0", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop() blocked on an empty buffer")
	}
}

func TestBuffer_PolicyFail(t *testing.T) {
	t.Parallel()

	b := New(4, 1, PolicyFail)
	ctx := context.Background()

	if err := b.Push(ctx, frames(0, 3, 1)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := b.Push(ctx, frames(3, 2, 1)); !errors.Is(err, ErrFull) {
		t.Fatalf("Push() error = %v, want ErrFull", err)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d after a rejected push, want 3", b.Len())
	}
	if err := b.Push(ctx, frames(3, 1, 1)); err != nil {
		t.Errorf("Push() of a fitting frame error = %v", err)
	}
}

func TestBuffer_PushBlocksUntilPop(t *testing.T) {
	t.Parallel()

	b := New(2, 1, PolicyBlock)
	ctx := context.Background()
	if err := b.Push(ctx, frames(0, 2, 1)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Push(ctx, frames(2, 2, 1)) }()

	select {
	case err := <-done:
		t.Fatalf("Push() on a full buffer returned early with %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	dst := make([]float32, 1)
	var got []float32
	deadline := time.After(5 * time.Second)
	for len(got) < 4 {
		if n := b.Pop(dst); n > 0 {
			got = append(got, dst[0])
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("only %d frames arrived", len(got))
		case <-time.After(time.Millisecond):
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("blocked Push() error = %v", err)
	}
	for i, v := range got {
		if v != float32(i) {
			t.Errorf("frame %d = %v", i, v)
		}
	}
}

func TestBuffer_PushUnblockedByClose(t *testing.T) {
	t.Parallel()

	b := New(1, 1, PolicyBlock)
	ctx := context.Background()
	_ = b.Push(ctx, frames(0, 1, 1))

	done := make(chan error, 1)
	go func() { done <- b.Push(ctx, frames(1, 1, 1)) }()

	time.Sleep(10 * time.Millisecond)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Push() error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push() still blocked after Close()")
	}

	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if n := b.Pop(make([]float32, 4)); n != 0 {
		t.Errorf("Pop() after Close() = %d, want 0", n)
	}
}

func TestBuffer_PushUnblockedByContext(t *testing.T) {
	t.Parallel()

	b := New(1, 1, PolicyBlock)
	_ = b.Push(context.Background(), frames(0, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Push(ctx, frames(1, 1, 1)) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Push() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push() still blocked after cancel")
	}
}

func TestBuffer_CloseWriteAndDrained(t *testing.T) {
	t.Parallel()

	b := New(4, 1, PolicyBlock)
	ctx := context.Background()
	_ = b.Push(ctx, frames(0, 2, 1))

	if b.Drained() {
		t.Fatal("Drained() before CloseWrite()")
	}

	b.CloseWrite()
	if err := b.Push(ctx, frames(2, 1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Push() after CloseWrite() error = %v, want ErrClosed", err)
	}
	if b.Drained() {
		t.Fatal("Drained() with frames still buffered")
	}

	if n := b.Pop(make([]float32, 4)); n != 2 {
		t.Fatalf("Pop() = %d, want 2", n)
	}
	if !b.Drained() {
		t.Error("Drained() = false after consuming everything")
	}
}

func TestBuffer_Misaligned(t *testing.T) {
	t.Parallel()

	b := New(4, 2, PolicyBlock)
	if err := b.Push(context.Background(), make([]float32, 3)); !errors.Is(err, ErrMisaligned) {
		t.Errorf("Push() error = %v, want ErrMisaligned", err)
	}
}

func TestBuffer_ConcurrentOrder(t *testing.T) {
	t.Parallel()

	const channels, total = 2, 50000
	b := New(257, channels, PolicyBlock)
	ctx := context.Background()

	go func() {
		for start := 0; start < total; {
			n := min(1+start%300, total-start)
			if err := b.Push(ctx, frames(start, n, channels)); err != nil {
				return
			}
			start += n
		}
		b.CloseWrite()
	}()

	dst := make([]float32, 64*channels)
	next := 0
	deadline := time.Now().Add(10 * time.Second)
	for !b.Drained() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %d frames", next)
		}
		n := b.Pop(dst)
		for i := range n {
			for c := range channels {
				if v := dst[i*channels+c]; v != float32(next) {
					t.Fatalf("frame %d channel %d = %v: order broken or duplicated", next, c, v)
				}
			}
			next++
		}
	}

	if next != total {
		t.Errorf("consumed %d frames, want %d", next, total)
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "block", want: PolicyBlock},
		{in: "", want: PolicyBlock},
		{in: "fail", want: PolicyFail},
		{in: "drop", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
		if err == nil && got.String() != map[Policy]string{PolicyBlock: "block", PolicyFail: "fail"}[got] {
			t.Errorf("String() = %q", got.String())
		}
	}
}

func BenchmarkBuffer_PushPop(b *testing.B) {
	buf := New(4096, 2, PolicyBlock)
	ctx := context.Background()
	src := make([]float32, 512*2)
	dst := make([]float32, 512*2)

	b.ReportAllocs()
	for b.Loop() {
		_ = buf.Push(ctx, src)
		buf.Pop(dst)
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunImmediatelyAndRepeats(t *testing.T) {
	s := New(Options{Interval: 20 * time.Millisecond, RunImmediately: true}, zerolog.Nop())

	var ticks atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		ticks.Add(1)
		return errors.New("tick errors must not stop the loop")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("应在 ctx 结束时返回，实际 %v", err)
	}
	if n := ticks.Load(); n < 3 {
		t.Fatalf("立即执行加周期执行应至少 3 次，实际 %d", n)
	}
}

func TestRunImmediatelyFiresBeforeInterval(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunImmediately: true}, zerolog.Nop())

	fired := make(chan time.Time, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			fired <- bucket
			return nil
		})
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("RunImmediately 应立即执行一次")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled，实际 %v", err)
	}
}

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 6 * time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2026, 10, 16, 7, 15, 0, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("对齐后的下一次应为 12:00，实际 %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("桶起点应为 06:00，实际 %s", got)
	}
}

func TestNewRejectsZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("间隔为 0 时应 panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}

func TestTickTimeoutBoundsTick(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunImmediately: true, TickTimeout: 20 * time.Millisecond}, zerolog.Nop())

	result := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			<-ctx.Done()
			result <- ctx.Err()
			return ctx.Err()
		})
	}()

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("单次 tick 应因超时结束，实际 %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TickTimeout 未生效")
	}
	cancel()
	<-done
}

package schedule

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStartRunsImmediately(t *testing.T) {
	var (
		mu   sync.Mutex
		runs int
	)
	ctx, cancel := context.WithCancel(context.Background())

	s := New("test", RunnerFunc(func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		cancel()
		return nil
	}), time.Hour)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("Expected exactly 1 immediate run, got %d", runs)
	}
}

func TestStartTicks(t *testing.T) {
	var (
		mu   sync.Mutex
		runs int
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New("test", RunnerFunc(func(ctx context.Context) error {
		mu.Lock()
		runs++
		n := runs
		mu.Unlock()
		if n >= 3 {
			cancel()
		}
		return nil
	}), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler did not reach 3 runs")
	}

	mu.Lock()
	defer mu.Unlock()
	if runs < 3 {
		t.Errorf("Expected at least 3 runs, got %d", runs)
	}
}

func TestNoRunAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	s := New("test", RunnerFunc(func(ctx context.Context) error {
		ran = true
		return nil
	}), time.Hour)

	s.Start(ctx)
	if ran {
		t.Error("No run must start after cancellation")
	}
}

func TestBusyRunsAreSkippedNotFatal(t *testing.T) {
	var (
		mu   sync.Mutex
		runs int
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New("test", RunnerFunc(func(ctx context.Context) error {
		mu.Lock()
		runs++
		n := runs
		mu.Unlock()
		if n >= 3 {
			cancel()
			return nil
		}
		return ErrBusy
	}), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler stopped ticking after ErrBusy")
	}
}

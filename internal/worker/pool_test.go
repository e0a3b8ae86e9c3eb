package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(Config{}, testLogger())

	if pool.workers != 2 {
		t.Errorf("workers = %d, want 2", pool.workers)
	}
	if cap(pool.tasks) != 16 {
		t.Errorf("queue size = %d, want 16", cap(pool.tasks))
	}
}

func TestPool_RunsTasks(t *testing.T) {
	pool := NewPool(Config{Workers: 3, QueueSize: 10}, testLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	var (
		wg  sync.WaitGroup
		ran atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Submit(Task{Name: "count", Run: func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	wg.Wait()
	if ran.Load() != 5 {
		t.Errorf("ran = %d, want 5", ran.Load())
	}
}

func TestPool_QueueFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	pool := NewPool(Config{Workers: 1, QueueSize: 1}, testLogger())
	noop := Task{Run: func(ctx context.Context) error { return nil }}

	if err := pool.Submit(noop); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if err := pool.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if pool.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", pool.Pending())
	}
}

func TestPool_TaskTimeout(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	done := make(chan error, 1)
	pool.Submit(Task{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			done <- ctx.Err()
			return ctx.Err()
		},
	})

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want DeadlineExceeded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task was not canceled by its timeout")
	}
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	pool.Start()
	defer pool.Stop(time.Second)

	pool.Submit(Task{Name: "boom", Run: func(ctx context.Context) error { panic("boom") }})

	done := make(chan struct{})
	pool.Submit(Task{Name: "after", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestPool_StopCancelsRunningTasks(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	pool.Start()

	started := make(chan struct{})
	pool.Submit(Task{Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	<-started

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := pool.Submit(Task{Run: func(ctx context.Context) error { return nil }}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("err = %v, want ErrPoolStopped", err)
	}
}

func TestPool_StopTimeout(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	pool.Start()

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	pool.Submit(Task{Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	if err := pool.Stop(10 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("err = %v, want ErrShutdownTimeout", err)
	}
}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrShutdownTimeout is returned when workers don't stop within timeout.
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

	// ErrQueueFull is returned when a task cannot be queued without blocking.
	ErrQueueFull = errors.New("worker pool queue is full")

	// ErrPoolStopped is returned when submitting to a stopped pool.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task is one independent unit of work, typically one inbound request.
type Task struct {
	// Name identifies the task in logs.
	Name string
	// Timeout bounds the task's context when positive.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	workers int
	tasks   chan Task
	logger  *slog.Logger

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
}

// Config holds worker pool configuration.
type Config struct {
	Workers   int
	QueueSize int
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 8
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers: cfg.Workers,
		tasks:   make(chan Task, cfg.QueueSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers, "queue_size", cap(p.tasks))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Stop cancels running tasks, drops queued ones and waits for workers to exit.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		select {
		case <-p.ctx.Done():
			logger.Debug("worker stopping")
			return
		case task := <-p.tasks:
			p.runTask(logger, task)
		}
	}
}

func (p *Pool) runTask(logger *slog.Logger, task Task) {
	logger = logger.With("task", task.Name)

	ctx := p.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r)
		}
	}()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		logger.Warn("task failed", "error", err, "duration", time.Since(start).String())
		return
	}
	logger.Debug("task completed", "duration", time.Since(start).String())
}

package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PoolConfig holds worker pool configuration
type PoolConfig struct {
	Workers   int
	QueueSize int
	// ShutdownTimeout is used by Stop callers that have no deadline of their own
	ShutdownTimeout time.Duration
}

// DefaultPoolConfig returns default worker pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:         4,
		QueueSize:       64,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration
func (c PoolConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative", ErrInvalidConfig)
	}
	return nil
}

type task struct {
	name     string
	run      func(ctx context.Context)
	queuedAt time.Time
}

// PoolStats is a point in time view of the pool
type PoolStats struct {
	Queued    int
	Running   int64
	Completed int64
	Panicked  int64
}

// WorkerPool runs sync jobs on a fixed number of goroutines. Submit never
// blocks: a full queue is reported to the caller so the request can be
// rejected instead of piling up.
type WorkerPool struct {
	config PoolConfig
	logger *zap.Logger

	tasks     chan task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool

	running   atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// NewWorkerPool creates a new worker pool instance
func NewWorkerPool(config PoolConfig, logger *zap.Logger) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultPoolConfig().ShutdownTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		config: config,
		logger: logger,
		tasks:  make(chan task, config.QueueSize),
	}, nil
}

// Start starts the workers. ctx is the parent of every job context.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	if p.tasks == nil {
		return ErrPoolNotRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.isRunning = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, p.tasks, i)
	}

	p.logger.Info("Sync worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
	)
	return nil
}

// Submit queues run under name
func (p *WorkerPool) Submit(name string, run func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.isRunning {
		return ErrPoolNotRunning
	}

	select {
	case p.tasks <- task{name: name, run: run, queuedAt: time.Now()}:
		p.logger.Debug("Job submitted", zap.String("job", name), zap.Int("queued", len(p.tasks)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting jobs and waits for queued and running ones to finish.
// When ctx expires first, running jobs are cancelled and ctx.Err() is returned.
// A ctx without deadline is bounded by ShutdownTimeout.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	close(p.tasks)
	p.tasks = nil
	p.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Sync worker pool stopped gracefully", zap.Int64("completed", p.completed.Load()))
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Sync worker pool stop timed out, cancelling running jobs",
			zap.Int64("running", p.running.Load()),
		)
		return ctx.Err()
	}
}

// Stats returns the current pool counters
func (p *WorkerPool) Stats() PoolStats {
	p.mu.RLock()
	queued := len(p.tasks)
	p.mu.RUnlock()
	return PoolStats{
		Queued:    queued,
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// QueuedJobs returns the number of jobs waiting for a worker
func (p *WorkerPool) QueuedJobs() int {
	return p.Stats().Queued
}

// RunningJobs returns the number of jobs being executed
func (p *WorkerPool) RunningJobs() int64 {
	return p.running.Load()
}

func (p *WorkerPool) worker(ctx context.Context, tasks <-chan task, workerID int) {
	defer p.wg.Done()

	for t := range tasks {
		p.execute(ctx, t, workerID)
	}
	p.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
}

func (p *WorkerPool) execute(ctx context.Context, t task, workerID int) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer p.completed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("Job panicked",
				zap.Int("worker_id", workerID),
				zap.String("job", t.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	p.logger.Debug("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job", t.name),
		zap.Duration("queue_wait", time.Since(t.queuedAt)),
	)
	t.run(ctx)
}

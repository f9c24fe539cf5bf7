package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task represents a unit of work to be executed.
// Tasks with the same Key always run on the same worker, in submission order.
type Task struct {
	ID  string
	Key uint64
	Fn  func(context.Context) error
}

// Pool runs tasks on a fixed set of workers, one queue per worker.
// The first failing task cancels the pool; Wait reports that error.
type Pool struct {
	name           string
	workers        int
	queueSize      int
	queues         []chan Task
	logger         *zap.Logger
	group          *errgroup.Group
	ctx            context.Context
	closeOnce      sync.Once
	closed         atomic.Bool
	activeWorkers  int32
	totalTasks     uint64
	completedTasks uint64
	failedTasks    uint64
	rejectedTasks  uint64
}

// Config holds worker pool configuration
type Config struct {
	Name      string
	Workers   int
	QueueSize int
	Logger    *zap.Logger
}

// New creates a pool and starts its workers
func New(ctx context.Context, cfg *Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	group, gctx := errgroup.WithContext(ctx)
	pool := &Pool{
		name:      cfg.Name,
		workers:   cfg.Workers,
		queueSize: cfg.QueueSize,
		queues:    make([]chan Task, cfg.Workers),
		logger:    cfg.Logger,
		group:     group,
		ctx:       gctx,
	}

	for i := 0; i < pool.workers; i++ {
		queue := make(chan Task, pool.queueSize)
		pool.queues[i] = queue
		workerID := i
		group.Go(func() error {
			return pool.worker(gctx, workerID, queue)
		})
	}

	pool.logger.Info("Worker pool started",
		zap.String("name", pool.name),
		zap.Int("workers", pool.workers),
		zap.Int("queue_size", pool.queueSize))

	return pool
}

// worker drains its queue until the queue is closed or the pool is canceled
func (p *Pool) worker(ctx context.Context, id int, queue <-chan Task) error {
	p.logger.Debug("Worker started",
		zap.String("pool", p.name),
		zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-queue:
			if !ok {
				return nil
			}
			if err := p.executeTask(ctx, id, task); err != nil {
				return err
			}
		}
	}
}

// executeTask executes a single task
func (p *Pool) executeTask(ctx context.Context, workerID int, task Task) error {
	atomic.AddInt32(&p.activeWorkers, 1)
	defer atomic.AddInt32(&p.activeWorkers, -1)

	start := time.Now()
	err := p.safeExecute(ctx, task)
	duration := time.Since(start)

	if err != nil {
		atomic.AddUint64(&p.failedTasks, 1)
		p.logger.Error("Task failed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", task.ID),
			zap.Duration("duration", duration),
			zap.Error(err))
		return fmt.Errorf("task %s: %w", task.ID, err)
	}

	atomic.AddUint64(&p.completedTasks, 1)
	return nil
}

// safeExecute executes a task with panic recovery
func (p *Pool) safeExecute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("Task panic recovered",
				zap.String("pool", p.name),
				zap.String("task_id", task.ID),
				zap.Any("panic", r))
		}
	}()

	return task.Fn(ctx)
}

// Submit queues a task on the worker owning task.Key.
// Blocks while that worker's queue is full. Must not race with Wait.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.closed.Load() {
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool '%s' is closed", p.name)
	}

	queue := p.queues[task.Key%uint64(p.workers)]
	select {
	case <-p.ctx.Done():
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool '%s' is stopped: %w", p.name, context.Cause(p.ctx))
	case <-ctx.Done():
		atomic.AddUint64(&p.rejectedTasks, 1)
		return ctx.Err()
	case queue <- task:
		atomic.AddUint64(&p.totalTasks, 1)
		return nil
	}
}

// Wait closes the queues, lets the workers drain them and returns the first task error
func (p *Pool) Wait() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for _, queue := range p.queues {
			close(queue)
		}
	})

	err := p.group.Wait()
	if err != nil {
		p.logger.Warn("Worker pool stopped with error",
			zap.String("name", p.name),
			zap.Error(err))
		return err
	}

	p.logger.Info("Worker pool drained",
		zap.String("name", p.name),
		zap.Uint64("completed_tasks", atomic.LoadUint64(&p.completedTasks)))
	return nil
}

// Stats returns current worker pool statistics
func (p *Pool) Stats() Stats {
	queued := 0
	for _, queue := range p.queues {
		queued += len(queue)
	}
	return Stats{
		Name:           p.name,
		Workers:        p.workers,
		ActiveWorkers:  int(atomic.LoadInt32(&p.activeWorkers)),
		QueueSize:      p.queueSize * p.workers,
		QueuedTasks:    queued,
		TotalTasks:     atomic.LoadUint64(&p.totalTasks),
		CompletedTasks: atomic.LoadUint64(&p.completedTasks),
		FailedTasks:    atomic.LoadUint64(&p.failedTasks),
		RejectedTasks:  atomic.LoadUint64(&p.rejectedTasks),
	}
}

// Stats represents worker pool statistics
type Stats struct {
	Name           string
	Workers        int
	ActiveWorkers  int
	QueueSize      int
	QueuedTasks    int
	TotalTasks     uint64
	CompletedTasks uint64
	FailedTasks    uint64
	RejectedTasks  uint64
}

// SuccessRate returns the task success rate as a percentage
func (s Stats) SuccessRate() float64 {
	if s.TotalTasks == 0 {
		return 100.0
	}
	return (float64(s.CompletedTasks) / float64(s.TotalTasks)) * 100.0
}

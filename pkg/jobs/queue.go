// Package jobs runs background work, such as catalog refreshes, on an
// in-memory worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the buffer has no room for another job.
var ErrQueueFull = errors.New("queue is full")

// Job represents a queued background task. Jobs sharing a non-empty Key are
// coalesced while one of them is pending or running.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ResultHook is told about every handler run.
type ResultHook func(job Job, err error, took time.Duration)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	OnResult   ResultHook
}

// Queue dispatches jobs to a fixed number of goroutines. Failed jobs are
// re-enqueued after RetryDelay until MaxRetries is exceeded.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onResult   ResultHook

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	active  map[string]string
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		onResult:   cfg.OnResult,
		jobs:       make(chan Job, cfg.BufferSize),
		active:     map[string]string{},
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("dropped", len(q.jobs)))
}

// Enqueue adds a job without blocking and returns the ID of the job that
// will do the work. When a job with the same Key is already pending or
// running, that job's ID is returned and nothing new is queued.
func (q *Queue) Enqueue(job Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return "", fmt.Errorf("queue %s not started", q.name)
	}
	if job.Key != "" {
		if id, ok := q.active[job.Key]; ok {
			return id, nil
		}
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-q.ctx.Done():
		return "", fmt.Errorf("queue %s stopped: %w", q.name, q.ctx.Err())
	case q.jobs <- job:
	default:
		return "", fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
	if job.Key != "" {
		q.active[job.Key] = job.ID
	}
	return job.ID, nil
}

// Pending returns the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			start := time.Now()
			err := q.handler(q.ctx, job)
			if q.onResult != nil {
				q.onResult(job, err, time.Since(start))
			}
			if err != nil {
				q.handleFailure(workerID, job, err)
				continue
			}
			q.release(job)
		}
	}
}

func (q *Queue) release(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	if q.active[job.Key] == job.ID {
		delete(q.active, job.Key)
	}
	q.mu.Unlock()
}

func (q *Queue) handleFailure(workerID int, job Job, err error) {
	fields := []zap.Field{
		zap.String("queue", q.name),
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Error(err),
	}
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", fields...)
		q.release(job)
		return
	}
	q.logger.Warn("job failed, retrying", append(fields, zap.Int("attempt", job.Attempt))...)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}
		// retries bypass coalescing; the key is still held by this job
		select {
		case <-q.ctx.Done():
		case q.jobs <- j:
		}
	}(job)
}

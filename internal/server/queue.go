package server

import (
	"context"
	"errors"
	"sync"

	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

var (
	// ErrQueueFull is returned when the dispatch queue cannot accept
	// another execution right now.
	ErrQueueFull = errors.New("execution queue is full")
	// ErrQueueClosed is returned when enqueueing after shutdown began.
	ErrQueueClosed = errors.New("execution queue is closed")
)

// Job is one queued execution request.
type Job struct {
	ExecutionID string
	Scenarios   []model.Scenario
}

// Runner executes a queued job whose progress state is already seeded.
type Runner interface {
	Run(ctx context.Context, executionID string, scenarios []model.Scenario) error
}

// Queue is the explicit boundary between the HTTP handlers and scenario
// execution. Handlers enqueue and return immediately; a worker drains
// the queue and runs each execution to completion.
type Queue struct {
	jobs   chan Job
	runner Runner
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue constructs a Queue with the given buffer size.
func NewQueue(runner Runner, log *logger.Logger, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		jobs:   make(chan Job, size),
		runner: runner,
		log:    log.WithComponent("queue"),
	}
}

// Start launches the worker that drains the queue. The context bounds
// each run, not the worker itself; call Close to stop the worker.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			log := q.log.WithExecution(job.ExecutionID)
			log.WithFields(map[string]any{"scenarios": len(job.Scenarios)}).Info("execution started")
			if err := q.runner.Run(ctx, job.ExecutionID, job.Scenarios); err != nil {
				log.Error(err, "execution finished with errors")
				continue
			}
			log.Info("execution finished")
		}
	}()
}

// Enqueue submits a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for in-flight work to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

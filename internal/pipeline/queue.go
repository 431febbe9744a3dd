package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned when the job queue cannot accept another
// submission. The API maps it to 503.
var ErrQueueFull = errors.New("analysis queue is full")

// Queue feeds submitted jobs to a bounded worker pool. Enqueue never blocks;
// a full queue rejects the submission so the client can retry.
type Queue struct {
	jobs    chan string
	orch    *Orchestrator
	workers int
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewQueue(orch *Orchestrator, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = workers
	}
	return &Queue{
		jobs:    make(chan string, size),
		orch:    orch,
		workers: workers,
	}
}

// Start launches the worker pool. Workers exit when Stop is called or ctx is
// cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.run(ctx, i)
		}
		slog.Info("pipeline workers started", "workers", q.workers, "queue_size", cap(q.jobs))
	})
}

func (q *Queue) run(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-q.jobs:
			if !ok {
				return
			}
			slog.Debug("worker picked up job", "worker", id, "job_id", jobID)
			q.orch.Process(ctx, jobID)
		}
	}
}

// Enqueue hands a job to the pool without blocking.
func (q *Queue) Enqueue(jobID string) error {
	select {
	case q.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}

// Depth reports how many jobs are waiting. Used by the health endpoint.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

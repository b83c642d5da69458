package scrape

import (
	"context"
	"sync"

	"github.com/unisport/kursfinder/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job is one catalog page a worker has to fetch and parse.
type Job struct {
	Name string // offer name as listed on the index page
	URL  string // absolute offer page url
}

// JobQueue provides non-blocking enqueue and channel-based dequeue semantics
// for page jobs.
type JobQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewJobQueue creates a bounded in-memory job queue.
func NewJobQueue(capacity int) *JobQueue {
	if capacity < 1 {
		capacity = defaultQueueCapacity
	}
	q := &JobQueue{
		jobs:     make(chan Job, capacity),
		capacity: capacity,
	}
	metrics.UpdateScrapeQueueSize(0)
	return q
}

// Enqueue adds a job. Returns false if the queue is full, closed, or the
// context is done.
func (q *JobQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("scrape_queue", "closed")
		return false
	}

	select {
	case q.jobs <- j:
		metrics.UpdateScrapeQueueSize(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("scrape_queue", "context_cancelled")
		return false
	default:
		metrics.RecordErrorByComponent("scrape_queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives jobs until the queue is closed
// and drained.
func (q *JobQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdateScrapeQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *JobQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Queued jobs are still delivered.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *JobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

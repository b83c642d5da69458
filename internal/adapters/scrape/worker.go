package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/unisport/kursfinder/pkg/logger"
	"github.com/unisport/kursfinder/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// PageResult is what one worker produced for one job. Err is set when the
// page could not be fetched or parsed; the run continues with the rest.
type PageResult struct {
	Job  Job
	Page Page
	Err  error
}

// jobSource defines how workers receive jobs.
type jobSource interface {
	Dequeue(ctx context.Context) <-chan Job
}

// pageWorker fetches and parses offer pages off the queue.
type pageWorker struct {
	queue   jobSource
	fetcher Fetcher
	results chan<- PageResult
	year    int
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

func newPageWorker(queue jobSource, fetcher Fetcher, results chan<- PageResult, year int, name string) *pageWorker {
	return &pageWorker{
		queue:    queue,
		fetcher:  fetcher,
		results:  results,
		year:     year,
		name:     name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named(name),
	}
}

// run processes jobs until the queue drains or ctx is canceled.
func (w *pageWorker) run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.results <- w.processJob(ctx, job)
		}
	}
}

// processJob fetches and parses a single page.
func (w *pageWorker) processJob(ctx context.Context, job Job) PageResult {
	body, err := w.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		metrics.RecordErrorByComponent("scrape_worker", "fetch_error")
		w.logger.Warn(ctx, "page fetch failed",
			logger.String("offer", job.Name),
			logger.String("url", job.URL),
			logger.Error(err),
		)
		return PageResult{Job: job, Err: fmt.Errorf("fetch %s: %w", job.Name, err)}
	}

	page, err := ParsePage(bytes.NewReader(body), job.URL, job.Name, w.year)
	if err != nil {
		metrics.RecordErrorByComponent("scrape_worker", "parse_error")
		w.logger.Warn(ctx, "page parse failed",
			logger.String("offer", job.Name),
			logger.Error(err),
		)
		return PageResult{Job: job, Err: fmt.Errorf("parse %s: %w", job.Name, err)}
	}

	w.logger.Debug(ctx, "page processed",
		logger.String("offer", job.Name),
		logger.Int("courses", len(page.Courses)),
	)
	return PageResult{Job: job, Page: page}
}

// workerPool manages the page workers of one run.
type workerPool struct {
	workers []*pageWorker
	logger  logger.Logger
}

func newWorkerPool(count int, queue jobSource, fetcher Fetcher, results chan<- PageResult, year int) *workerPool {
	if count < 1 {
		count = defaultWorkerCount
	}

	pool := &workerPool{
		workers: make([]*pageWorker, count),
		logger:  logger.Get().Named("scrape-pool"),
	}
	for i := 0; i < count; i++ {
		pool.workers[i] = newPageWorker(queue, fetcher, results, year, "scrape-worker-"+strconv.Itoa(i))
	}
	metrics.UpdateScrapeWorkers(count)
	return pool
}

// start launches all workers.
func (p *workerPool) start(ctx context.Context) {
	for _, w := range p.workers {
		go w.run(ctx)
	}
}

// wait blocks until every worker finished or the timeout passes.
func (p *workerPool) wait(ctx context.Context) error {
	deadline, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-deadline.Done():
			p.logger.Warn(ctx, "worker did not finish in time", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool wait: %w", deadline.Err())
		}
	}
	metrics.UpdateScrapeWorkers(0)
	return nil
}

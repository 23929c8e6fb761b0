package concurrent

import (
	"context"
	"sync"
)

type JobFunc[T any, G any] func(ctx context.Context, job T) G

type indexed[T any] struct {
	i   int
	val T
}

// WorkerPool runs a fixed number of workers over a queue of jobs. results keep the order jobs were added in.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan indexed[T]
	results    chan indexed[G]
	added      int
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan indexed[T], jobQueueSize),
		results:    make(chan indexed[G], jobQueueSize),
	}
}

// Start launches the workers. jobs still queued when ctx is done are dropped.
func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobQueue {
				if ctx.Err() != nil {
					continue
				}
				wp.results <- indexed[G]{i: job.i, val: jobFunc(ctx, job.val)}
			}
		}()
	}
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- indexed[T]{i: wp.added, val: job}
	wp.added++
}

// Collect closes the queue, waits for the workers and returns the results in job order.
// ok is false for jobs dropped after cancellation.
func (wp *WorkerPool[T, G]) Collect() (results []G, ok []bool) {
	close(wp.jobQueue)
	go func() {
		wp.wg.Wait()
		close(wp.results)
	}()

	results = make([]G, wp.added)
	ok = make([]bool, wp.added)
	for res := range wp.results {
		results[res.i] = res.val
		ok[res.i] = true
	}
	return results, ok
}

// Run processes every job with numWorkers workers. it returns ctx.Err() if the context ended
// before every job ran.
func Run[T any, G any](ctx context.Context, numWorkers int, jobs []T, jobFunc JobFunc[T, G]) ([]G, error) {
	wp := NewWorkerPool[T, G](numWorkers, len(jobs))
	wp.Start(ctx, jobFunc)
	for _, job := range jobs {
		wp.AddJob(job)
	}
	results, ok := wp.Collect()
	for _, done := range ok {
		if !done {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// Package workers runs independent jobs on a bounded set of goroutines.
package workers

import (
	"context"
	"sync"
)

// DefaultWorkers is used when a pool is created with a non-positive size.
const DefaultWorkers = 2

// Pool is a bounded worker pool. Each job is processed by exactly one worker
// and results come back in input order.
type Pool struct {
	numWorkers int
}

// NewPool creates a pool with the given number of workers
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Pool{numWorkers: numWorkers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.numWorkers }

type jobItem[T any] struct {
	index int
	item  T
}

type resultItem[R any] struct {
	index  int
	result R
}

// Map runs fn over items on the pool and returns the results in the same order
// as items. Map blocks until every job has finished; fn is responsible for
// honouring ctx.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) R) []R {
	n := len(items)
	if n == 0 {
		return []R{}
	}

	jobs := make(chan jobItem[T], n)
	results := make(chan resultItem[R], n)

	workers := p.numWorkers
	if n < workers {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- resultItem[R]{index: job.index, result: fn(ctx, job.item)}
			}
		}()
	}

	for idx, item := range items {
		jobs <- jobItem[T]{index: idx, item: item}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]R, n)
	for r := range results {
		out[r.index] = r.result
	}
	return out
}

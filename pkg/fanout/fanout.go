// Package fanout runs independent lookups over a bounded worker pool.
package fanout

import (
	"context"
	"sync"
)

// DefaultConcurrency is the default number of concurrent workers
const DefaultConcurrency = 8

// Result holds the outcome for one input item
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for every item using at most concurrency workers.
// Results come back in input order regardless of completion order, so
// callers can merge deterministically.
func Run[T, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) []Result[R] {
	if len(items) == 0 {
		return nil
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	results := make([]Result[R], len(items))

	itemChan := make(chan int, len(items))
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range itemChan {
				select {
				case <-workerCtx.Done():
					results[idx] = Result[R]{Err: workerCtx.Err()}
					continue
				default:
				}

				value, err := fn(workerCtx, items[idx])
				results[idx] = Result[R]{Value: value, Err: err}
			}
		}()
	}

	for i := range items {
		itemChan <- i
	}
	close(itemChan)

	wg.Wait()
	return results
}

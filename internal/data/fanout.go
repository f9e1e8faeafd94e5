package data

import (
	"context"
	"sync"
)

// maxConcurrent limits parallel gateway calls in FanOut.
const maxConcurrent = 5

// All runs fns concurrently and waits for every one to finish. It returns
// the first error in argument order. Each fn updates its own pool, so a
// failure leaves the other pools' results in place.
func All(ctx context.Context, fns ...func(context.Context) error) error {
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Go(func() {
			errs[i] = fn(ctx)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Result is the typed outcome of one FanOut call.
type Result[T any] struct {
	Key  string
	Data T
	Err  error
}

// FanOut runs fn for every key concurrently, limiting parallelism to
// maxConcurrent. Results are returned in key order.
func FanOut[T any](ctx context.Context, keys []string, fn func(ctx context.Context, key string) (T, error)) []Result[T] {
	if len(keys) == 0 {
		return nil
	}

	results := make([]Result[T], len(keys))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, key := range keys {
		wg.Add(1)
		go func(idx int, k string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result[T]{Key: k, Err: ctx.Err()}
				return
			}
			if err := ctx.Err(); err != nil {
				results[idx] = Result[T]{Key: k, Err: err}
				return
			}
			data, err := fn(ctx, k)
			results[idx] = Result[T]{Key: k, Data: data, Err: err}
		}(i, key)
	}

	wg.Wait()
	return results
}

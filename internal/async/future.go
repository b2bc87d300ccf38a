// Package async provides futures for database work started in the background.
// A future cannot be cancelled; abandoning one only stops the wait, the work still runs
// until the driver finishes or the context handed to it expires.
package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Future is the eventual result of a background call
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in a new goroutine and returns its future
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic in background call: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a future that is already complete
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Done is closed when the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx ends. Ending ctx does not stop the work.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then chains fn after f; fn is skipped when f failed
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, val T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		<-f.done
		if f.err != nil {
			var zero U
			return zero, f.err
		}
		return fn(ctx, f.val)
	})
}

// All runs every fn concurrently and returns results in argument order.
// Every call runs to completion; the first error is returned.
func All[T any](ctx context.Context, fns ...func(ctx context.Context) (T, error)) ([]T, error) {
	results := make([]T, len(fns))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			val, err := fn(ctx)
			if err != nil {
				return err
			}
			results[i] = val
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

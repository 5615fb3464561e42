package host

import (
	"context"
	"fmt"
)

// Future is the pending result of a task submitted to the synchronized context
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Get waits for the result. It fails fast when ctx is cancelled or abort closes.
func (f *Future[T]) Get(ctx context.Context, abort <-chan struct{}) (T, error) {
	var zero T
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-abort:
		return zero, ErrShuttingDown
	}
}

// Submit queues fn on the synchronized context and returns its future.
// A panic in fn is reported as the future's error.
func Submit[T any](s Scheduler, fn func() (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	err := s.RunTask(func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("synchronized task panicked: %v", r)
			}
			f.complete(value, err)
		}()
		value, err = fn()
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CallSync runs fn on the synchronized context and waits for its result
func CallSync[T any](ctx context.Context, s Scheduler, fn func() (T, error)) (T, error) {
	f, err := Submit(s, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Get(ctx, s.Done())
}

// Package queue runs a worker over a list of items with a hard ceiling on
// the number of operations in flight.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/mysteriumnetwork/hostwall/record"
)

// Worker performs a single unit of work. It may fail; a failure only ever
// affects the item it was given.
type Worker[T any] func(ctx context.Context, item T) ([]record.Record, error)

type Queue[T any] struct {
	limit   int
	limiter *rate.Limiter
	onError func(T, error)
}

// New creates a queue running at most limit workers at once. A non-positive
// limit means all items at once.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{
		limit:   limit,
		onError: func(T, error) {},
	}
}

// WithLimiter paces dispatch of items through l.
func (q *Queue[T]) WithLimiter(l *rate.Limiter) *Queue[T] {
	q.limiter = l
	return q
}

// OnError sets a callback receiving per-item failures. It may be called
// concurrently.
func (q *Queue[T]) OnError(fn func(item T, err error)) *Queue[T] {
	if fn != nil {
		q.onError = fn
	}
	return q
}

// Run dispatches every item to work and returns once every dispatched item
// has settled. Per-item errors are swallowed after being handed to the
// OnError callback. An error marked with Abort stops dispatch of remaining
// items and is returned, along with everything gathered so far. The same
// goes for cancellation of ctx, and for a limiter unable to admit the next
// item before the deadline of ctx.
func (q *Queue[T]) Run(ctx context.Context, items []T, work Worker[T]) ([]record.Record, error) {
	if len(items) == 0 {
		return nil, nil
	}

	limit := q.limit
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sem     = semaphore.NewWeighted(int64(limit))
		acc     accumulator
		wg      sync.WaitGroup
		abortMu sync.Mutex
		aborted error
		// set when the limiter gives up before the context is done
		paceErr error
	)

	for _, item := range items {
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		// Acquire may succeed on a cancelled context when a slot is free.
		if runCtx.Err() != nil {
			sem.Release(1)
			break
		}
		if q.limiter != nil {
			if err := q.limiter.Wait(runCtx); err != nil {
				sem.Release(1)
				if runCtx.Err() == nil {
					paceErr = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
				}
				break
			}
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)

			recs, err := settle(runCtx, item, work)
			if err == nil {
				acc.append(recs)
				return
			}

			var abort *abortError
			if errors.As(err, &abort) {
				abortMu.Lock()
				if aborted == nil {
					aborted = abort.err
					cancel()
				}
				abortMu.Unlock()
				return
			}
			q.onError(item, err)
		}(item)
	}

	wg.Wait()

	if aborted != nil {
		return acc.records, aborted
	}
	if err := ctx.Err(); err != nil {
		return acc.records, err
	}
	return acc.records, paceErr
}

// settle runs work for one item, turning a panic into an ordinary error.
func settle[T any](ctx context.Context, item T, work Worker[T]) (recs []record.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs = nil
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()
	return work(ctx, item)
}

type accumulator struct {
	mux     sync.Mutex
	records []record.Record
}

func (a *accumulator) append(recs []record.Record) {
	if len(recs) == 0 {
		return
	}
	a.mux.Lock()
	defer a.mux.Unlock()
	a.records = append(a.records, recs...)
}

type abortError struct {
	err error
}

// Abort marks err as fatal to the whole run of a queue.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &abortError{err: err}
}

func (e *abortError) Error() string {
	return e.err.Error()
}

func (e *abortError) Unwrap() error {
	return e.err
}

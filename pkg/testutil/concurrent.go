package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes          int32
	Errors             int32
	Conflicts          int32
	NotFounds          int32
	InvalidTransitions int32
	AlreadyIssued      int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds + r.InvalidTransitions + r.AlreadyIssued
}

// RunConcurrent executes fn in parallel goroutines and buckets each outcome
// by sentinel or domain error code.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, conflicts, notFounds, invalid, issued atomic.Int32

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidStateTransition):
				invalid.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyIssued):
				issued.Add(1)
			case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:          successes.Load(),
		Errors:             errs.Load(),
		Conflicts:          conflicts.Load(),
		NotFounds:          notFounds.Load(),
		InvalidTransitions: invalid.Load(),
		AlreadyIssued:      issued.Load(),
	}
}

// RunConcurrentCtx executes fn in parallel goroutines with context support.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}

// RunConcurrentCollect executes fn in parallel and returns every result value
// in index order alongside the errors.
func RunConcurrentCollect[T any](goroutines int, fn func(idx int) (T, error)) ([]T, []error) {
	var wg sync.WaitGroup
	values := make([]T, goroutines)
	errs := make([]error, goroutines)

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			values[idx], errs[idx] = fn(idx)
		}(i)
	}
	close(start)
	wg.Wait()
	return values, errs
}

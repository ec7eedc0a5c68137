// Package batch runs a set of independent operations under a bounded
// admission pool with fail-soft semantics: every item runs to a terminal
// outcome, failures never abort siblings, and results come back in input
// order regardless of completion order.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Outcome is the terminal result of one item: either a value or the error
// that stopped it. Index is the item's position in the input.
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

// OK reports whether the item produced a value.
func (o Outcome[R]) OK() bool {
	return o.Err == nil
}

// Func processes one item. It receives the item's input index.
type Func[T, R any] func(ctx context.Context, index int, item T) (R, error)

// RunAll processes every item with at most limit in flight at once. Each
// item acquires an admission token before starting and releases it at its
// terminal state. The call returns only after every item has finished;
// output slot i always corresponds to input slot i.
//
// Context cancellation propagates to in-flight items and records a
// cancellation outcome for items not yet started, but already-produced
// outcomes are kept.
func RunAll[T, R any](ctx context.Context, items []T, limit int64, fn Func[T, R]) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return outcomes
	}
	if limit <= 0 {
		limit = 1
	}

	pool := semaphore.NewWeighted(limit)
	var wg sync.WaitGroup

	for i := range items {
		outcomes[i].Index = i

		if err := pool.Acquire(ctx, 1); err != nil {
			outcomes[i].Err = fmt.Errorf("admission: %w", err)
			continue
		}

		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer pool.Release(1)
			value, err := fn(ctx, index, item)
			outcomes[index].Value = value
			outcomes[index].Err = err
		}(i, items[i])
	}

	wg.Wait()
	return outcomes
}

// Succeeded returns the values of successful outcomes, preserving order.
func Succeeded[R any](outcomes []Outcome[R]) []R {
	values := make([]R, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.OK() {
			values = append(values, outcome.Value)
		}
	}
	return values
}

// Failed returns the failed outcomes, preserving order.
func Failed[R any](outcomes []Outcome[R]) []Outcome[R] {
	var failed []Outcome[R]
	for _, outcome := range outcomes {
		if !outcome.OK() {
			failed = append(failed, outcome)
		}
	}
	return failed
}

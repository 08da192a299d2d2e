// Package race holds the two escalation combinators the orchestrator is built
// from: a concurrent first-success fan-in, and a sequential try-in-order
// chain. Keeping them separate keeps the two escalation semantics visibly
// distinct at call sites.
package race

import (
	"context"

	"tubebrief/errors"
)

// Op is one attempt to produce a T.
type Op[T any] func(ctx context.Context) (T, error)

// FirstSuccess runs all ops concurrently and resolves with the value of
// whichever succeeds first, regardless of completion order. It fails only
// once every op has failed, aggregating all failure reasons. This is a fan-in
// barrier: one branch failing early never aborts branches that could still
// succeed.
//
// Remaining branches are cancelled once a winner is picked.
func FirstSuccess[T any](ctx context.Context, op string, ops ...Op[T]) (T, error) {
	var zero T
	if len(ops) == 0 {
		return zero, errors.AllMethodsFailed(op, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	results := make(chan outcome, len(ops))
	for _, o := range ops {
		o := o
		go func() {
			val, err := o(ctx)
			results <- outcome{val: val, err: err}
		}()
	}

	reasons := make([]error, 0, len(ops))
	for range ops {
		r := <-results
		if r.err == nil {
			return r.val, nil
		}
		reasons = append(reasons, r.err)
	}
	return zero, errors.AllMethodsFailed(op, reasons)
}

// Sequential tries ops strictly in order, stopping at the first success.
// Stage N+1 never starts unless stage N has fully failed. All failure
// reasons are aggregated when every stage fails.
func Sequential[T any](ctx context.Context, op string, ops ...Op[T]) (T, error) {
	var zero T
	reasons := make([]error, 0, len(ops))
	for _, o := range ops {
		if err := ctx.Err(); err != nil {
			reasons = append(reasons, err)
			break
		}
		val, err := o(ctx)
		if err == nil {
			return val, nil
		}
		reasons = append(reasons, err)
	}
	return zero, errors.AllMethodsFailed(op, reasons)
}

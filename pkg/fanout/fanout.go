// Package fanout runs per-item work across a bounded worker pool.
//
// A batch never aborts: one item's failure is recorded in its Result and the
// remaining items still run. Results arrive in completion order, not input
// order.
package fanout

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// DefaultWorkers is the worker pool size used when the caller passes 0.
const DefaultWorkers = 5

var tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fanout_tasks_total",
	Help: "Total fan-out tasks by outcome",
}, []string{"pool", "outcome"})

// Result pairs an item with the error its task produced, if any.
// On failure Item carries the input value unmodified.
type Result[T any] struct {
	Item T
	Err  error
}

// Run applies fn to every item using at most workers goroutines and returns
// one Result per item in completion order. name labels logs and metrics.
//
// fn returning an error marks that item's Result and nothing else: the rest
// of the batch still runs to completion.
func Run[T any](ctx context.Context, name string, items []T, workers int, fn func(ctx context.Context, item T) (T, error)) []Result[T] {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan T, len(items))
	results := make(chan Result[T], len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				out, err := fn(ctx, item)
				if err != nil {
					tasksTotal.WithLabelValues(name, "error").Inc()
					// The input value passes through untouched.
					results <- Result[T]{Item: item, Err: err}
					continue
				}
				tasksTotal.WithLabelValues(name, "ok").Inc()
				results <- Result[T]{Item: out}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]Result[T], 0, len(items))
	failed := 0
	for r := range results {
		if r.Err != nil {
			failed++
		}
		out = append(out, r)
	}

	log.Debug().
		Str("pool", name).
		Int("items", len(items)).
		Int("workers", workers).
		Int("failed", failed).
		Msg("Fan-out batch complete")

	return out
}

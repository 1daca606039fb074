package fanout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRun_AllSucceed(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	results := Run(context.Background(), "test", items, 3, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("Expected %d results, got %d", len(items), len(results))
	}

	got := make([]int, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error: %v", r.Err)
		}
		got = append(got, r.Item)
	}
	sort.Ints(got)
	for i, v := range got {
		if v != (i+1)*10 {
			t.Errorf("Result %d: expected %d, got %d", i, (i+1)*10, v)
		}
	}
}

func TestRun_OneFailureDoesNotAbortBatch(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	results := Run(context.Background(), "test", items, 5, func(ctx context.Context, n int) (int, error) {
		if n == 7 {
			return 0, errors.New("item 7 fails")
		}
		return n + 100, nil
	})

	if len(results) != 20 {
		t.Fatalf("Expected 20 results, got %d", len(results))
	}

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			if r.Item != 7 {
				t.Errorf("Failed result must carry the input unmodified, got %d", r.Item)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected exactly 1 failure, got %d", failures)
	}
}

func TestRun_RespectsWorkerCap(t *testing.T) {
	var active, peak int64
	var mu sync.Mutex
	gate := make(chan struct{})

	items := make([]int, 20)
	done := make(chan []Result[int])
	go func() {
		done <- Run(context.Background(), "test", items, 5, func(ctx context.Context, n int) (int, error) {
			cur := atomic.AddInt64(&active, 1)
			mu.Lock()
			if cur > peak {
				peak = cur
			}
			mu.Unlock()
			<-gate
			atomic.AddInt64(&active, -1)
			return n, nil
		})
	}()

	close(gate)
	results := <-done

	if len(results) != 20 {
		t.Fatalf("Expected 20 results, got %d", len(results))
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 5 {
		t.Errorf("Worker cap violated: %d concurrent tasks observed", peak)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	results := Run(context.Background(), "test", nil, 5, func(ctx context.Context, n int) (int, error) {
		t.Fatal("fn must not be called for empty input")
		return n, nil
	})
	if results != nil {
		t.Errorf("Expected nil results for empty input, got %v", results)
	}
}

func TestRun_ZeroWorkersUsesDefault(t *testing.T) {
	items := []string{"a", "b", "c"}
	results := Run(context.Background(), "test", items, 0, func(ctx context.Context, s string) (string, error) {
		return fmt.Sprintf("%s!", s), nil
	})
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error: %v", r.Err)
		}
	}
}

package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

var errBoom = errors.New("boom")

func TestPoolBoundsConcurrency(t *testing.T) {
	const concurrency = 3
	pool := NewPool(concurrency)

	var inFlight int32
	var maxSeen int32
	var mu sync.Mutex

	files := make([]string, 20)
	pool.Run(files, func(string) error {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > maxSeen {
			maxSeen = n
		}
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
		return nil
	}, nil)

	if maxSeen > concurrency {
		t.Fatalf("observed %d concurrent workers, want <= %d", maxSeen, concurrency)
	}
}

func TestPoolReportsErrorsWithoutAborting(t *testing.T) {
	pool := NewPool(2)
	files := []string{"a", "b", "c", "fail"}

	var processed int32
	var failed []string
	var mu sync.Mutex
	pool.Run(files, func(f string) error {
		atomic.AddInt32(&processed, 1)
		if f == "fail" {
			return errBoom
		}
		return nil
	}, func(f string, err error) {
		mu.Lock()
		failed = append(failed, f)
		mu.Unlock()
	})

	if processed != int32(len(files)) {
		t.Fatalf("processed = %d, want %d", processed, len(files))
	}
	if len(failed) != 1 || failed[0] != "fail" {
		t.Fatalf("failed = %v, want [fail]", failed)
	}
}

package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, "frame-1") {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
	if got := <-q.Dequeue(); got != "frame-1" {
		t.Errorf("expected frame-1, got %q", got)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	var drops atomic.Int32
	q := NewInMemoryQueue[int](WithCapacity(2), WithDropHook(func() { drops.Add(1) }))
	ctx := context.Background()

	if !q.Enqueue(ctx, 1) || !q.Enqueue(ctx, 2) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, 3) {
		t.Error("expected enqueue on a full queue to fail")
	}
	if drops.Load() != 1 {
		t.Errorf("expected one drop, got %d", drops.Load())
	}
	if first := <-q.Dequeue(); first != 1 {
		t.Errorf("expected FIFO order, got %d first", first)
	}
	if !q.Enqueue(ctx, 4) {
		t.Error("expected room after a dequeue")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(4))
	ctx := context.Background()
	q.Enqueue(ctx, 7)

	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, 8) {
		t.Error("expected enqueue after close to fail")
	}

	var drained []int
	for v := range q.Dequeue() {
		drained = append(drained, v)
	}
	if len(drained) != 1 || drained[0] != 7 {
		t.Errorf("expected buffered item to drain after close, got %v", drained)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, 1) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentProducersAndClose(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1000))
	ctx := context.Background()
	var wg sync.WaitGroup
	var accepted atomic.Int32

	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				if q.Enqueue(ctx, p*1000+i) {
					accepted.Add(1)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		_ = q.Close()
	}()

	n := 0
	for range q.Dequeue() {
		n++
	}
	if int32(n) != accepted.Load() {
		t.Errorf("drained %d items, accepted %d", n, accepted.Load())
	}
}

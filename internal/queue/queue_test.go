package queue

import (
	"sync"
	"testing"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[testItem]()

	if got := q.Drain(); got != nil {
		t.Errorf("expected nil from empty queue, got %v", got)
	}

	q.Push(testItem{ID: 1}, testItem{ID: 2}, testItem{ID: 3})
	result := q.Drain()

	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}
	if result[0].ID != 1 || result[1].ID != 2 || result[2].ID != 3 {
		t.Errorf("unexpected order: %+v", result)
	}
	if !q.Empty() {
		t.Error("expected empty queue after Drain")
	}
}

func TestQueue_PushDuringDrain(t *testing.T) {
	q := New[func()]()

	var ran []int
	q.Push(func() {
		ran = append(ran, 1)
		q.Push(func() { ran = append(ran, 2) })
	})

	for _, fn := range q.Drain() {
		fn()
	}
	if len(ran) != 1 || q.Len() != 1 {
		t.Fatalf("expected re-queued work to wait, ran=%v len=%d", ran, q.Len())
	}

	for _, fn := range q.Drain() {
		fn()
	}
	if len(ran) != 2 || ran[1] != 2 {
		t.Errorf("expected [1 2], got %v", ran)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2}, testItem{ID: 3})

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(id)
		}(i)
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			total += len(q.Drain())
			break loop
		default:
			total += len(q.Drain())
		}
	}

	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}

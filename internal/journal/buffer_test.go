package journal

import (
	"sync"
	"testing"
	"time"
)

func TestBuffer_BasicPushPop(t *testing.T) {
	buf := NewBuffer[int](10)

	for i := 0; i < 5; i++ {
		if !buf.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := buf.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buf.Len())
	}
}

func TestBuffer_GrowAt70Percent(t *testing.T) {
	buf := NewBuffer[int](10)

	// 7 items is 70% of 10
	for i := 0; i < 7; i++ {
		buf.Push(i)
	}

	stats := buf.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	for i := 0; i < 7; i++ {
		val, ok := buf.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestBuffer_MultipleGrows(t *testing.T) {
	buf := NewBuffer[int](4)

	for i := 0; i < 100; i++ {
		if !buf.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	stats := buf.Stats()
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.ResizeCount < 3 {
		t.Errorf("ResizeCount = %d, expected at least 3 resizes", stats.ResizeCount)
	}

	for i := 0; i < 100; i++ {
		val, ok := buf.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestBuffer_BlockingPop(t *testing.T) {
	buf := NewBuffer[int](10)

	received := make(chan int, 1)
	go func() {
		val, ok := buf.Pop()
		if ok {
			received <- val
		}
	}()

	// Give the consumer time to block
	time.Sleep(10 * time.Millisecond)

	buf.Push(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("popped %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked Pop")
	}
}

func TestBuffer_Close(t *testing.T) {
	buf := NewBuffer[int](10)

	buf.Push(1)
	buf.Push(2)
	buf.Close()

	if buf.Push(3) {
		t.Error("Push should return false after Close")
	}

	// Remaining items drain out first.
	val, ok := buf.TryPop()
	if !ok || val != 1 {
		t.Errorf("TryPop() = %d, %v; want 1, true", val, ok)
	}
	val, ok = buf.TryPop()
	if !ok || val != 2 {
		t.Errorf("TryPop() = %d, %v; want 2, true", val, ok)
	}
	if _, ok = buf.TryPop(); ok {
		t.Error("TryPop should return false when empty and closed")
	}
}

func TestBuffer_CloseUnblocksPop(t *testing.T) {
	buf := NewBuffer[int](10)

	done := make(chan bool, 1)
	go func() {
		_, ok := buf.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop should return false when closed and empty")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Pop")
	}
}

func TestBuffer_Drain(t *testing.T) {
	buf := NewBuffer[int](10)

	for i := 0; i < 10; i++ {
		buf.Push(i)
	}

	items := buf.Drain(5)
	if len(items) != 5 {
		t.Errorf("Drain(5) returned %d items, want 5", len(items))
	}
	for i, val := range items {
		if val != i {
			t.Errorf("items[%d] = %d, want %d", i, val, i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	// Zero max drains everything left.
	items = buf.Drain(0)
	if len(items) != 5 {
		t.Errorf("Drain(0) returned %d items, want 5", len(items))
	}
	if buf.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buf.Len())
	}
}

func TestBuffer_ConcurrentPushPop(t *testing.T) {
	buf := NewBuffer[int](10)
	const numItems = 1000

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i++ {
			buf.Push(i)
		}
	}()

	received := make([]int, 0, numItems)
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i++ {
			val, ok := buf.Pop()
			if ok {
				mu.Lock()
				received = append(received, val)
				mu.Unlock()
			}
		}
	}()

	wg.Wait()

	if len(received) != numItems {
		t.Errorf("received %d items, want %d", len(received), numItems)
	}

	seen := make(map[int]bool)
	for _, val := range received {
		seen[val] = true
	}
	for i := 0; i < numItems; i++ {
		if !seen[i] {
			t.Errorf("missing item %d", i)
		}
	}
}

func TestBuffer_WrapAround(t *testing.T) {
	buf := NewBuffer[int](5)

	buf.Push(1)
	buf.Push(2)
	buf.Push(3)

	buf.TryPop() // removes 1
	buf.TryPop() // removes 2

	// These wrap around the ring
	buf.Push(4)
	buf.Push(5)
	buf.Push(6)

	// Growth with a wrapped buffer must preserve order
	buf.Push(7)
	buf.Push(8)

	expected := []int{3, 4, 5, 6, 7, 8}
	for _, want := range expected {
		got, ok := buf.TryPop()
		if !ok {
			t.Fatalf("TryPop failed, expected %d", want)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}

func TestBuffer_Stats(t *testing.T) {
	buf := NewBuffer[int](10)

	stats := buf.Stats()
	if stats.Count != 0 || stats.Capacity != 10 || stats.TotalPushed != 0 || stats.TotalPopped != 0 {
		t.Errorf("initial stats incorrect: %+v", stats)
	}

	buf.Push(1)
	buf.Push(2)
	buf.Push(3)

	stats = buf.Stats()
	if stats.Count != 3 || stats.TotalPushed != 3 {
		t.Errorf("stats after pushes incorrect: %+v", stats)
	}

	buf.TryPop()

	stats = buf.Stats()
	if stats.Count != 2 || stats.TotalPopped != 1 {
		t.Errorf("stats after pop incorrect: %+v", stats)
	}
}

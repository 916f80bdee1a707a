package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueue_FIFO verifies items come out in push order
// Given: A queue with 5 items pushed from one goroutine
// When: Items are popped
// Then: They are returned in push order and the queue ends empty
func TestQueue_FIFO(t *testing.T) {
	// Arrange
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())

	// Act & Assert
	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		require.True(t, ok, "step %d: queue empty", i)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
}

// TestQueue_TryPopEmpty verifies TryPop does not block on an empty queue
func TestQueue_TryPopEmpty(t *testing.T) {
	q := NewQueue[string]()

	v, ok := q.TryPop()

	assert.False(t, ok)
	assert.Empty(t, v)
}

// TestQueue_PopBlocksUntilPush verifies Pop waits for a producer
// Given: An empty queue and a consumer blocked in Pop
// When: An item is pushed 20ms later
// Then: Pop returns that item
func TestQueue_PopBlocksUntilPush(t *testing.T) {
	// Arrange
	q := NewQueue[int]()
	got := make(chan int, 1)

	go func() {
		v, ok := q.Pop(nil)
		if ok {
			got <- v
		}
	}()

	// Act
	time.Sleep(20 * time.Millisecond)
	select {
	case <-got:
		t.Fatal("Pop returned before anything was pushed")
	default:
	}
	q.Push(7)

	// Assert
	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(testTimeout):
		t.Fatal("Pop did not return after Push")
	}
}

// TestQueue_PopStop verifies a closed stop channel releases a blocked consumer
func TestQueue_PopStop(t *testing.T) {
	q := NewQueue[int]()
	stop := make(chan struct{})
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Pop(stop)
		done <- ok
	}()

	close(stop)

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(testTimeout):
		t.Fatal("Pop ignored the stop channel")
	}
}

// TestQueue_ConcurrentConsumers verifies every item is delivered exactly once
// Given: 4 consumers blocked in Pop
// When: 1000 items are pushed
// Then: Each item is received by exactly one consumer
func TestQueue_ConcurrentConsumers(t *testing.T) {
	// Arrange
	const items = 1000
	q := NewQueue[int]()
	stop := make(chan struct{})

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.Pop(stop)
				if !ok {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}

	// Act
	for i := 0; i < items; i++ {
		q.Push(i)
	}

	// Assert
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == items
	}, testTimeout, 5*time.Millisecond)
	close(stop)
	wg.Wait()

	for i := 0; i < items; i++ {
		assert.Equal(t, 1, seen[i], "item %d", i)
	}
}

// TestQueue_Clear verifies Clear drops every queued item
func TestQueue_Clear(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)

	q.Clear()

	assert.Equal(t, 0, q.Len())
	_, ok := q.TryPop()
	assert.False(t, ok)
}

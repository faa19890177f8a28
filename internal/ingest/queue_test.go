package ingest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Put(Event{Op: OpAdd, Path: "a"})
	q.Put(Event{Op: OpUpdate, Path: "b"})
	q.Put(Event{Op: OpDelete, Path: "c"})

	assert.Equal(t, 3, q.Len())

	ev, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, "a", ev.Path)

	ev, ok = q.Get()
	require.True(t, ok)
	assert.Equal(t, "b", ev.Path)

	ev, ok = q.Get()
	require.True(t, ok)
	assert.Equal(t, "c", ev.Path)
	assert.Equal(t, 0, q.Len())
}

func TestQueuePutNeverBlocks(t *testing.T) {
	q := NewQueue()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			q.Put(Event{Op: OpAdd, Path: fmt.Sprintf("f%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Put blocked with no consumer")
	}
	assert.Equal(t, 10000, q.Len())
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := NewQueue()

	got := make(chan Event, 1)
	go func() {
		ev, ok := q.Get()
		if ok {
			got <- ev
		}
	}()

	// Consumer is parked; a Put wakes it.
	time.Sleep(20 * time.Millisecond)
	q.Put(Event{Op: OpAdd, Path: "late"})

	select {
	case ev := <-got:
		assert.Equal(t, "late", ev.Path)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake on Put")
	}
}

func TestQueueCloseDrainsPending(t *testing.T) {
	q := NewQueue()
	q.Put(Event{Op: OpAdd, Path: "a"})
	q.Close()

	// Pending events remain consumable after Close.
	ev, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, "a", ev.Path)

	_, ok = q.Get()
	assert.False(t, ok)

	// Puts after Close are dropped.
	q.Put(Event{Op: OpAdd, Path: "b"})
	assert.Equal(t, 0, q.Len())
}

func TestQueueCloseWakesBlockedConsumers(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Get()
			assert.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked consumers were not woken by Close")
	}
}

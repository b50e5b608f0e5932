package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	for _, name := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(Task{Name: name}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Name)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTaskQueue_SignalCoalesces(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(Task{Name: "a"})
	q.Enqueue(Task{Name: "b"})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}

	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(Task{Name: "queued"})

	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(Task{Name: "late"}), "closed queue rejects tasks")

	// Already queued tasks remain drainable.
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "queued", got.Name)

	// Closed signal channel never blocks.
	<-q.Wait()
	<-q.Wait()
}

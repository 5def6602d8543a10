package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryQueue_FIFO(t *testing.T) {
	q := newDeliveryQueue()

	for _, c := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(Dispatch{Command: c}))
	}

	for _, want := range []string{"A", "B", "C"} {
		d, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, d.Command)
	}
}

func TestDeliveryQueue_TryDequeue_Empty(t *testing.T) {
	q := newDeliveryQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestDeliveryQueue_Close(t *testing.T) {
	q := newDeliveryQueue()
	require.True(t, q.Enqueue(Dispatch{Command: "before"}))

	q.Close()

	assert.False(t, q.Enqueue(Dispatch{Command: "after"}), "enqueue after close should return false")

	d, ok := q.TryDequeue()
	require.True(t, ok, "items queued before close remain available")
	assert.Equal(t, "before", d.Command)
}

func TestDeliveryQueue_ReuseAfterDrain(t *testing.T) {
	q := newDeliveryQueue()

	for round := 0; round < 3; round++ {
		for i := 0; i < 10; i++ {
			q.Enqueue(Dispatch{Seq: int64(i)})
		}
		for i := 0; i < 10; i++ {
			d, ok := q.TryDequeue()
			require.True(t, ok)
			assert.Equal(t, int64(i), d.Seq)
		}
		assert.Equal(t, 0, q.Len())
	}
}

func TestDeliveryQueue_ConcurrentProducers(t *testing.T) {
	q := newDeliveryQueue()
	const producers = 20
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Dispatch{RunID: fmt.Sprintf("run-%d", p), Seq: int64(i)})
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Len())

	// Each producer's items come out in the order it enqueued them.
	last := make(map[string]int64)
	for {
		d, ok := q.TryDequeue()
		if !ok {
			break
		}
		if prev, seen := last[d.RunID]; seen {
			assert.Greater(t, d.Seq, prev, "per-producer order must be preserved")
		}
		last[d.RunID] = d.Seq
	}
	assert.Len(t, last, producers)
}

package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster[int](4)
	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	b.Publish(7)

	assert.Equal(t, 7, <-first)
	assert.Equal(t, 7, <-second)
}

func TestBroadcaster_SlowConsumerKeepsLatest(t *testing.T) {
	b := NewBroadcaster[string](2)
	ch := b.Subscribe()

	b.Publish("a")
	b.Publish("b")
	b.Publish("c")
	b.Publish("d")

	assert.Equal(t, "c", <-ch)
	assert.Equal(t, "d", <-ch)
	assert.Len(t, ch, 0)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster[int](0)
	ch := b.Subscribe()

	b.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	// second unsubscribe is a no-op
	b.Unsubscribe(ch)
	b.Publish(1)
}

func TestBroadcaster_ConcurrentPublish(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch := b.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(v)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, ch, 1)
	b.Unsubscribe(ch)
}

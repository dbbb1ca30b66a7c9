package stray

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	b := newBus[int](4)

	chA, laggedA := b.subscribe()
	chB, laggedB := b.subscribe()

	b.publish(42)

	require.Equal(t, 42, <-chA)
	require.Equal(t, 42, <-chB)
	require.False(t, *laggedA)
	require.False(t, *laggedB)
}

func TestBusDropsForSlowSubscriberWithoutBlockingFastOnes(t *testing.T) {
	b := newBus[int](1)

	slow, slowLagged := b.subscribe()
	fast, _ := b.subscribe()

	b.publish(1)
	require.Equal(t, 1, <-fast) // fast keeps up, freeing its buffer
	b.publish(2)                // slow's buffer (capacity 1) is already full; this should be dropped for slow

	require.Equal(t, 2, <-fast)

	require.Equal(t, 1, <-slow)
	require.True(t, *slowLagged)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := newBus[int](2)
	ch, _ := b.subscribe()
	b.unsubscribe(ch)

	b.publish(1)

	select {
	case _, ok := <-ch:
		require.False(t, ok, "unexpected delivery after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBusCloseClosesAllSubscriberChannels(t *testing.T) {
	b := newBus[int](2)
	ch, _ := b.subscribe()

	b.close()

	_, ok := <-ch
	require.False(t, ok)
}

func TestBusSubscriberCount(t *testing.T) {
	b := newBus[int](2)
	require.Equal(t, 0, b.subscriberCount())

	ch, _ := b.subscribe()
	require.Equal(t, 1, b.subscriberCount())

	b.unsubscribe(ch)
	require.Equal(t, 0, b.subscriberCount())
}

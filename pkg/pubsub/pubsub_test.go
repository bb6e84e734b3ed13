package pubsub

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPubSub_Simple(t *testing.T) {
	pubsub := NewPubSub[uint32]()

	val := uint32(42)

	sub := pubsub.Subscribe(1)
	pubsub.Publish(val)

	receivedVal := <-sub.Chan()
	require.Equal(t, val, receivedVal)

	select {
	case receivedVal = <-sub.Chan():
		require.FailNow(t, "channel must not contain any element", "got %v", receivedVal)
	default:
	}

	sub.Close()

	_, ok := <-sub.Chan()
	require.False(t, ok)

	pubsub.CloseAll()
}

func TestPubSub_MultipleSubscribers(t *testing.T) {
	pubsub := NewPubSub[uint32]()

	val := uint32(42)

	g, _ := errgroup.WithContext(context.Background())

	waitSubscribe := &sync.WaitGroup{}

	for i := 0; i < 10; i++ {
		waitSubscribe.Add(1)
		g.Go(func() error {
			sub := pubsub.Subscribe(1)
			waitSubscribe.Done()

			receivedVal := <-sub.Chan()
			require.Equal(t, val, receivedVal)
			sub.Close()
			_, ok := <-sub.Chan()
			require.False(t, ok)
			return nil
		})
	}

	waitSubscribe.Wait()

	pubsub.Publish(val)

	_ = g.Wait()

	pubsub.CloseAll()
}

func TestPubSub_DropsOldestWhenFull(t *testing.T) {
	pubsub := NewPubSub[int]()

	sub := pubsub.Subscribe(2)
	for i := 1; i <= 5; i++ {
		pubsub.Publish(i)
	}

	// The two most recent values survive, in order.
	require.Equal(t, 4, <-sub.Chan())
	require.Equal(t, 5, <-sub.Chan())

	select {
	case v := <-sub.Chan():
		require.FailNow(t, "unexpected buffered value", "got %v", v)
	default:
	}

	pubsub.CloseAll()
}

func TestPubSub_SubscribeAfterCloseAll(t *testing.T) {
	pubsub := NewPubSub[int]()
	pubsub.CloseAll()

	sub := pubsub.Subscribe(1)
	_, ok := <-sub.Chan()
	require.False(t, ok)

	// Publishing into a closed PubSub is a no-op.
	pubsub.Publish(1)
}

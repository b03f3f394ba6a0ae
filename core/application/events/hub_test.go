package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falkordb/falkordb-mcp/core/domain"
)

func receive(t *testing.T, sub *Subscription, timeout time.Duration) domain.LifecycleEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(timeout):
		t.Fatalf("subscriber %s: no event within %s", sub.ID(), timeout)
		return domain.LifecycleEvent{}
	}
}

func assertQuiet(t *testing.T, sub *Subscription, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("subscriber %s: unexpected event %+v", sub.ID(), ev)
	case <-time.After(wait):
	}
}

func subscribeN(t *testing.T, hub *Hub, n int) []*Subscription {
	t.Helper()
	subs := make([]*Subscription, n)
	for i := range subs {
		sub, err := hub.Subscribe()
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectedEvent(), receive(t, sub, time.Second))
		subs[i] = sub
	}
	return subs
}

func TestHub_PublishDeliversExactlyOncePerSubscriber(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40} {
		t.Run(fmt.Sprintf("%d subscribers", n), func(t *testing.T) {
			hub := NewHub(Options{})
			defer hub.Close()
			subs := subscribeN(t, hub, n)

			event := domain.ProcessingEvent("MATCH (n) RETURN n", "social")
			hub.Publish(event)

			for _, sub := range subs {
				assert.Equal(t, event, receive(t, sub, time.Second))
				assertQuiet(t, sub, 20*time.Millisecond)
			}
		})
	}
}

func TestHub_ConnectedEventGoesOnlyToNewSubscriber(t *testing.T) {
	hub := NewHub(Options{})
	defer hub.Close()

	first := subscribeN(t, hub, 1)[0]
	subscribeN(t, hub, 1)

	assertQuiet(t, first, 30*time.Millisecond)
}

func TestHub_GlobalEmissionOrder(t *testing.T) {
	hub := NewHub(Options{BufferSize: 8})
	defer hub.Close()
	subs := subscribeN(t, hub, 3)

	const total = 50
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			for i := 0; i < total; i++ {
				ev := receive(t, sub, 2*time.Second)
				assert.Equal(t, fmt.Sprintf("q%d", i), ev.Query)
			}
		}(sub)
	}

	for i := 0; i < total; i++ {
		hub.Publish(domain.ProcessingEvent(fmt.Sprintf("q%d", i), "g"))
	}
	wg.Wait()
}

func TestHub_UnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	hub := NewHub(Options{})
	defer hub.Close()
	subs := subscribeN(t, hub, 2)
	gone, stay := subs[0], subs[1]

	gone.Close()
	gone.Close()
	hub.Unsubscribe(gone)
	hub.Unsubscribe(nil)

	assert.Equal(t, 1, hub.Count())
	select {
	case <-gone.Done():
	default:
		t.Fatal("Done should be closed after unsubscribe")
	}

	hub.Publish(domain.ErrorEvent("g", "boom"))
	assertQuiet(t, gone, 30*time.Millisecond)
	assert.Equal(t, domain.StatusError, receive(t, stay, time.Second).Status)
}

func TestHub_HeartbeatCadence(t *testing.T) {
	hub := NewHub(Options{HeartbeatInterval: 25 * time.Millisecond})
	defer hub.Close()
	sub := subscribeN(t, hub, 1)[0]

	for i := 0; i < 3; i++ {
		ev := receive(t, sub, 500*time.Millisecond)
		assert.Equal(t, domain.EventHeartbeat, ev.Type)
		assert.NotZero(t, ev.Timestamp)
		assert.Nil(t, ev.Data)
	}

	sub.Close()
	for drained := false; !drained; {
		select {
		case <-sub.Events():
		default:
			drained = true
		}
	}
	time.Sleep(60 * time.Millisecond)
	assertQuiet(t, sub, 60*time.Millisecond)
}

func TestHub_StalledSubscriberIsDisconnected(t *testing.T) {
	hub := NewHub(Options{BufferSize: 1, SendTimeout: 20 * time.Millisecond})
	defer hub.Close()

	stalled, err := hub.Subscribe()
	require.NoError(t, err)
	// The connection event fills the single buffer slot and is never read.

	hub.Publish(domain.ProcessingEvent("q", "g"))

	select {
	case <-stalled.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled subscriber should have been disconnected")
	}
	assert.Equal(t, 0, hub.Count())
}

func TestHub_StalledSubscribersShareOneSendTimeout(t *testing.T) {
	const sendTimeout = 200 * time.Millisecond
	hub := NewHub(Options{BufferSize: 1, SendTimeout: sendTimeout})
	defer hub.Close()

	healthy := subscribeN(t, hub, 1)[0]
	stalled := make([]*Subscription, 4)
	for i := range stalled {
		sub, err := hub.Subscribe()
		require.NoError(t, err)
		stalled[i] = sub
	}

	event := domain.ProcessingEvent("q", "g")
	start := time.Now()
	hub.Publish(event)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, sendTimeout)
	assert.Less(t, elapsed, 2*sendTimeout, "stalled subscribers must be waited on together")

	for _, sub := range stalled {
		select {
		case <-sub.Done():
		default:
			t.Fatalf("stalled subscriber %s still registered", sub.ID())
		}
	}
	assert.Equal(t, event, receive(t, healthy, time.Second))
	assert.Equal(t, 1, hub.Count())
}

func TestHub_SlowReaderWithinTimeoutKeepsOrder(t *testing.T) {
	hub := NewHub(Options{BufferSize: 1, SendTimeout: time.Second})
	defer hub.Close()
	sub := subscribeN(t, hub, 1)[0]

	hub.Publish(domain.ProcessingEvent("q0", "g"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Publish(domain.ProcessingEvent("q1", "g"))
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "q0", receive(t, sub, time.Second).Query)
	assert.Equal(t, "q1", receive(t, sub, time.Second).Query)
	<-done
	assert.Equal(t, 1, hub.Count())
}

func TestHub_SubscriberLimit(t *testing.T) {
	t.Run("soft limit only warns", func(t *testing.T) {
		hub := NewHub(Options{MaxSubscribers: 2})
		defer hub.Close()
		subscribeN(t, hub, 3)
		assert.Equal(t, 3, hub.Count())
	})

	t.Run("hard cap rejects", func(t *testing.T) {
		hub := NewHub(Options{MaxSubscribers: 2, EnforceLimit: true})
		defer hub.Close()
		subscribeN(t, hub, 2)

		_, err := hub.Subscribe()
		assert.ErrorIs(t, err, ErrSubscriberLimit)
		assert.Equal(t, 2, hub.Count())
	})
}

func TestHub_CloseTearsDownEveryone(t *testing.T) {
	hub := NewHub(Options{})
	subs := subscribeN(t, hub, 4)

	hub.Close()

	for _, sub := range subs {
		select {
		case <-sub.Done():
		default:
			t.Fatalf("subscriber %s still open after Close", sub.ID())
		}
	}
	assert.Equal(t, 0, hub.Count())

	_, err := hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ConcurrentChurnDuringPublish(t *testing.T) {
	hub := NewHub(Options{})
	defer hub.Close()
	stable := subscribeN(t, hub, 1)[0]

	const publishes = 100
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < publishes; i++ {
			hub.Publish(domain.ProcessingEvent(fmt.Sprintf("q%d", i), "g"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			sub, err := hub.Subscribe()
			if !assert.NoError(t, err) {
				return
			}
			sub.Close()
		}
	}()

	for i := 0; i < publishes; i++ {
		assert.Equal(t, fmt.Sprintf("q%d", i), receive(t, stable, 2*time.Second).Query)
	}
	wg.Wait()
	assert.Equal(t, 1, hub.Count())
}

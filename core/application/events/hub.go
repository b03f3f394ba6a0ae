package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/falkordb/falkordb-mcp/core/domain"
	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/observability"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMaxSubscribers    = 100
	DefaultSendTimeout       = 5 * time.Second
	DefaultBufferSize        = 64
)

var (
	// ErrHubClosed is returned by Subscribe after Close.
	ErrHubClosed = errors.New("event hub is closed")
	// ErrSubscriberLimit is returned by Subscribe when the hard cap is enforced
	// and reached.
	ErrSubscriberLimit = errors.New("subscriber limit reached")
)

// Options configures a Hub. Zero values fall back to the defaults above.
type Options struct {
	HeartbeatInterval time.Duration
	MaxSubscribers    int
	// EnforceLimit turns MaxSubscribers into a hard cap. Otherwise exceeding
	// it only logs a warning.
	EnforceLimit bool
	// SendTimeout bounds how long Publish waits on one subscriber before
	// treating it as disconnected.
	SendTimeout time.Duration
	BufferSize  int
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.MaxSubscribers <= 0 {
		o.MaxSubscribers = DefaultMaxSubscribers
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	return o
}

// Hub is an in-process broadcaster of lifecycle events. It is the only owner
// of its subscriber set.
type Hub struct {
	opts Options
	log  logger.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscription
	seq         uint64
	closed      bool

	// publishMu serializes Publish so every subscriber observes one global
	// emission order.
	publishMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(opts Options) *Hub {
	return &Hub{
		opts:        opts.withDefaults(),
		log:         logger.New("hub"),
		subscribers: make(map[string]*Subscription),
	}
}

// Subscribe registers a new subscriber. Its queue already holds the
// connection event and its heartbeat is running when Subscribe returns.
func (h *Hub) Subscribe() (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if len(h.subscribers) >= h.opts.MaxSubscribers {
		if h.opts.EnforceLimit {
			h.mu.Unlock()
			h.log.Warnf("Rejecting subscriber: limit of %d reached", h.opts.MaxSubscribers)
			return nil, ErrSubscriberLimit
		}
		h.log.Warnf("Subscriber count %d exceeds soft limit %d", len(h.subscribers)+1, h.opts.MaxSubscribers)
	}

	h.seq++
	sub := &Subscription{
		id:           uuid.NewString(),
		seq:          h.seq,
		registeredAt: time.Now(),
		events:       make(chan domain.LifecycleEvent, h.opts.BufferSize),
		done:         make(chan struct{}),
		hub:          h,
	}
	sub.events <- domain.ConnectedEvent()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	observability.SetStreamSubscribers(count)
	h.log.Debugf("Subscriber %s registered (%d active)", sub.id, count)

	go h.heartbeat(sub)
	return sub, nil
}

// Unsubscribe removes sub and stops its heartbeat. Calling it more than once
// is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.closeOnce.Do(func() {
		close(sub.done)

		h.mu.Lock()
		delete(h.subscribers, sub.id)
		count := len(h.subscribers)
		h.mu.Unlock()

		observability.SetStreamSubscribers(count)
		h.log.Debugf("Subscriber %s removed (%d active)", sub.id, count)
	})
}

// Publish delivers event to every subscriber registered at call time, in
// registration order. Subscribers that leave before their turn are skipped.
// Subscribers with a full queue are waited on together, so one Publish blocks
// for at most one send timeout however many of them stall.
func (h *Hub) Publish(event domain.LifecycleEvent) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	delivered := 0
	var stalled []*Subscription
	for _, sub := range h.snapshot() {
		switch h.offer(sub, event) {
		case offerSent:
			delivered++
		case offerFull:
			stalled = append(stalled, sub)
		}
	}

	if len(stalled) > 0 {
		delivered += h.deliverStalled(stalled, event)
	}
	observability.RecordEventPublished(string(event.Type), delivered)
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unsubscribes everyone and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	for _, sub := range h.snapshot() {
		h.Unsubscribe(sub)
	}
}

func (h *Hub) snapshot() []*Subscription {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })
	return subs
}

type offerResult int

const (
	offerSent offerResult = iota
	offerFull
	offerGone
)

// offer enqueues event without blocking. A subscriber that is already gone is
// dropped from the set.
func (h *Hub) offer(sub *Subscription, event domain.LifecycleEvent) offerResult {
	select {
	case <-sub.done:
		h.Unsubscribe(sub)
		return offerGone
	default:
	}

	select {
	case sub.events <- event:
		return offerSent
	default:
		return offerFull
	}
}

// deliverStalled waits on every stalled subscriber concurrently against one
// shared deadline. Those still full when it passes are disconnected.
func (h *Hub) deliverStalled(stalled []*Subscription, event domain.LifecycleEvent) int {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.SendTimeout)
	defer cancel()

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for _, sub := range stalled {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			if h.await(ctx, sub, event) {
				delivered.Add(1)
			}
		}(sub)
	}
	wg.Wait()
	return int(delivered.Load())
}

// deliver enqueues event for a single subscriber, waiting up to the send
// timeout when its queue is full.
func (h *Hub) deliver(sub *Subscription, event domain.LifecycleEvent) bool {
	switch h.offer(sub, event) {
	case offerSent:
		return true
	case offerGone:
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.SendTimeout)
	defer cancel()
	return h.await(ctx, sub, event)
}

func (h *Hub) await(ctx context.Context, sub *Subscription, event domain.LifecycleEvent) bool {
	select {
	case sub.events <- event:
		return true
	case <-sub.done:
		return false
	case <-ctx.Done():
		h.log.Warnf("Subscriber %s did not accept %s event within %s, disconnecting", sub.id, event.Type, h.opts.SendTimeout)
		observability.RecordSubscriberDropped("send_timeout")
		h.Unsubscribe(sub)
		return false
	}
}

func (h *Hub) heartbeat(sub *Subscription) {
	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return
		case now := <-ticker.C:
			if !h.deliver(sub, domain.HeartbeatEvent(now)) {
				return
			}
		}
	}
}

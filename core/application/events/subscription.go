package events

import (
	"sync"
	"time"

	"github.com/falkordb/falkordb-mcp/core/domain"
)

// Subscription is the handle of one streaming subscriber. The consumer reads
// Events until Done is closed.
type Subscription struct {
	id           string
	seq          uint64
	registeredAt time.Time

	events    chan domain.LifecycleEvent
	done      chan struct{}
	closeOnce sync.Once
	hub       *Hub
}

// ID identifies the subscriber for logging.
func (s *Subscription) ID() string { return s.id }

// RegisteredAt is when the subscriber joined the hub.
func (s *Subscription) RegisteredAt() time.Time { return s.registeredAt }

// Events is the subscriber's ordered event queue. It is never closed; select
// on Done as well.
func (s *Subscription) Events() <-chan domain.LifecycleEvent { return s.events }

// Done is closed once the subscription has been torn down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes from the hub. Safe to call repeatedly.
func (s *Subscription) Close() { s.hub.Unsubscribe(s) }

package interfaces

import "github.com/falkordb/falkordb-mcp/core/domain"

// EventPublisher broadcasts lifecycle events to every current subscriber.
type EventPublisher interface {
	Publish(event domain.LifecycleEvent)
}

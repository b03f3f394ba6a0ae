package domain

import "time"

// EventType tags a LifecycleEvent.
type EventType string

const (
	EventContext     EventType = "context"
	EventQueryResult EventType = "query_result"
	EventQueryError  EventType = "query_error"
	EventConnection  EventType = "connection"
	EventHeartbeat   EventType = "heartbeat"
)

// EventStatus is the lifecycle stage carried by an event.
type EventStatus string

const (
	StatusProcessing EventStatus = "processing"
	StatusSuccess    EventStatus = "success"
	StatusError      EventStatus = "error"
	StatusConnected  EventStatus = "connected"
)

// LifecycleEvent is one message on the event stream. Heartbeats carry only a
// timestamp; query events carry the graph name and, on success, the result.
type LifecycleEvent struct {
	Type      EventType         `json:"type"`
	Status    EventStatus       `json:"status,omitempty"`
	Data      *GraphQueryResult `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Query     string            `json:"query,omitempty"`
	GraphName string            `json:"graphName,omitempty"`
	Timestamp int64             `json:"timestamp,omitempty"`
}

// ProcessingEvent announces that a query has been accepted.
func ProcessingEvent(query, graph string) LifecycleEvent {
	return LifecycleEvent{Type: EventContext, Status: StatusProcessing, Query: query, GraphName: graph}
}

// SuccessEvent is the terminal event of a successful query.
func SuccessEvent(graph string, result *GraphQueryResult) LifecycleEvent {
	return LifecycleEvent{Type: EventQueryResult, Status: StatusSuccess, GraphName: graph, Data: result}
}

// ErrorEvent is the terminal event of a failed query.
func ErrorEvent(graph, message string) LifecycleEvent {
	return LifecycleEvent{Type: EventQueryError, Status: StatusError, GraphName: graph, Error: message}
}

// ConnectedEvent is sent once to a new subscriber.
func ConnectedEvent() LifecycleEvent {
	return LifecycleEvent{Type: EventConnection, Status: StatusConnected}
}

// HeartbeatEvent carries the current time in Unix milliseconds.
func HeartbeatEvent(now time.Time) LifecycleEvent {
	return LifecycleEvent{Type: EventHeartbeat, Timestamp: now.UnixMilli()}
}

// IsTerminal reports whether e ends a query lifecycle.
func (e LifecycleEvent) IsTerminal() bool {
	return e.Status == StatusSuccess || e.Status == StatusError
}

package graph

import (
	"context"
	"time"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed successfully
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node encountered an error
	NodeEventError NodeEvent = "error"
)

// NodeEventInfo describes a single node lifecycle event.
type NodeEventInfo[S any] struct {
	Event    NodeEvent
	NodeName string
	// State is the input state for start and error events, the output state for complete events.
	State S
	Err   error
	// Duration is zero for start events.
	Duration time.Duration
}

// NodeListener observes node execution. Listeners run synchronously on the
// executing goroutine; panics inside a listener are swallowed.
type NodeListener[S any] interface {
	OnNodeEvent(ctx context.Context, info NodeEventInfo[S])
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc[S any] func(ctx context.Context, info NodeEventInfo[S])

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc[S]) OnNodeEvent(ctx context.Context, info NodeEventInfo[S]) {
	f(ctx, info)
}

package cache

import (
	"context"
	"time"
)

// EventKind distinguishes the outcomes an Observer is told about.
type EventKind int

const (
	// EventHit means the result came from the backend.
	EventHit EventKind = iota
	// EventComputed means the computation ran and its result was stored.
	EventComputed
)

func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// Event describes one successful invocation of a wrapped computation.
type Event struct {
	Kind     EventKind
	Name     string        // computation name
	Identity string        // fully qualified computation identity
	Key      string        // derived cache key
	Duration time.Duration // time spent in the invocation
}

// Observer receives cache events.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Observe must be best-effort and must not panic.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

type noopObserver struct{}

func (noopObserver) Observe(context.Context, Event) {}

// Package notify defines the Publisher boundary for workspace-change and
// parse-completion events. No code in this module calls Publish;
// cmd/cortexd's Engine holds a NoopPublisher as its Notifier. spec.md describes this as "a single process-wide
// session/notification bus is an external collaborator; the core never
// reads it" — so this package ships only the interface and a no-op
// implementation. A real bus (NATS, Redis Streams, an in-process
// pub/sub) is an integrator's concern, wired in at the boundary where
// the core is embedded.
package notify

import (
	"context"
	"time"

	"github.com/cortexmind/cortexd/internal/ids"
)

// EventKind classifies the events a Publisher carries.
type EventKind int

const (
	// EventFileChanged describes a VFS write, create, or delete.
	EventFileChanged EventKind = iota
	// EventParseCompleted describes the analysis pipeline finishing
	// extraction of code units and dependency edges for a file.
	EventParseCompleted
	// EventWorkspaceForked describes a completed ForkWorkspace.
	EventWorkspaceForked
)

func (k EventKind) String() string {
	switch k {
	case EventFileChanged:
		return "FILE_CHANGED"
	case EventParseCompleted:
		return "PARSE_COMPLETED"
	case EventWorkspaceForked:
		return "WORKSPACE_FORKED"
	default:
		return "UNKNOWN"
	}
}

// Event is one notification. Path and UnitCount are only populated for
// the event kinds they apply to.
type Event struct {
	Kind        EventKind
	WorkspaceID ids.Id
	Path        string
	UnitCount   int
	Timestamp   time.Time
}

// Publisher is the sink for events about state-changing operations; the
// VFS, analysis pipeline and fork code do not call it. Publish must not block the caller on slow downstream delivery; an
// implementation backed by a real bus should buffer or drop rather than
// propagate backpressure into the core.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. cmd/cortexd's Engine is built
// with it as its Notifier.
type NoopPublisher struct{}

// Publish implements Publisher by doing nothing.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

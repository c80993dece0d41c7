// Package domain holds the shared persisted entity types used across the
// engine: workspaces, virtual filesystem nodes, code units, dependency
// edges, and the cognitive-memory record types. Subsystems that need a
// narrower view embed these types rather than redeclaring fields.
package domain

import (
	"time"

	"github.com/cortexmind/cortexd/internal/ids"
)

// WorkspaceKind classifies the contents a workspace holds.
type WorkspaceKind string

const (
	WorkspaceCode  WorkspaceKind = "CODE"
	WorkspaceDocs  WorkspaceKind = "DOCS"
	WorkspaceMixed WorkspaceKind = "MIXED"
)

// WorkspaceSource records how a workspace came into being.
type WorkspaceSource string

const (
	WorkspaceLocal    WorkspaceSource = "LOCAL"
	WorkspaceImported WorkspaceSource = "IMPORTED"
	WorkspaceForked   WorkspaceSource = "FORKED"
)

// Workspace scopes every vnode, episode, and semantic unit stored under
// its namespace. Namespace uniquely isolates reads unless a caller
// explicitly federates across workspaces.
type Workspace struct {
	ID              ids.Id
	Name            string
	Kind            WorkspaceKind
	Source          WorkspaceSource
	Namespace       string
	SourcePath      string
	ReadOnly        bool
	ParentWorkspace ids.Id
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasParent reports whether the workspace was forked from another.
func (w Workspace) HasParent() bool {
	return !w.ParentWorkspace.IsNil()
}

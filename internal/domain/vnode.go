package domain

import (
	"time"

	"github.com/cortexmind/cortexd/internal/ids"
)

// VNodeKind distinguishes files, directories, and symlinks in the
// virtual filesystem tree.
type VNodeKind string

const (
	VNodeFile      VNodeKind = "FILE"
	VNodeDirectory VNodeKind = "DIRECTORY"
	VNodeSymlink   VNodeKind = "SYMLINK"
)

// VNodeStatus is Active until the node is tombstoned by delete.
type VNodeStatus string

const (
	VNodeActive  VNodeStatus = "ACTIVE"
	VNodeDeleted VNodeStatus = "DELETED"
)

// Language is the set of source languages the analysis pipeline
// recognizes. Rust and Java are declared so the taxonomy is complete,
// but no grammar is wired for them.
type Language string

const (
	LanguageGo         Language = "GO"
	LanguageRust       Language = "RUST"
	LanguageTypeScript Language = "TYPESCRIPT"
	LanguageTSX        Language = "TSX"
	LanguageJavaScript Language = "JAVASCRIPT"
	LanguagePython     Language = "PYTHON"
	LanguageJava       Language = "JAVA"
	LanguageC          Language = "C"
	LanguageCPP        Language = "CPP"
	LanguageUnknown    Language = "UNKNOWN"
)

// VNode is a virtual filesystem node: a file, directory, or symlink
// scoped to a single workspace namespace.
type VNode struct {
	ID          ids.Id
	WorkspaceID ids.Id
	Path        string // canonical VirtualPath string form
	Kind        VNodeKind
	ContentHash string // blake3 hex; empty for directories
	SizeBytes   uint64
	ReadOnly    bool
	Language    Language
	Status      VNodeStatus
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     uint64
}

// IsFile reports whether the node is a file vnode.
func (v VNode) IsFile() bool { return v.Kind == VNodeFile }

// IsDirectory reports whether the node is a directory vnode.
func (v VNode) IsDirectory() bool { return v.Kind == VNodeDirectory }

// UnitsCount reads the "units_count" metadata key populated by the
// analysis pipeline after extracting code units from this file.
func (v VNode) UnitsCount() int {
	if v.Metadata == nil {
		return 0
	}
	switch n := v.Metadata["units_count"].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// FileContent is the content-addressed record keyed by ContentHash.
// reference_count tracks how many active vnodes point at this content;
// records with a zero reference count are eligible for garbage
// collection.
type FileContent struct {
	ContentHash     string
	Content         string // valid only when IsText
	ContentBinary   []byte // valid only when !IsText
	IsText          bool
	SizeBytes       uint64
	LineCount       int
	ReferenceCount  uint64
	CreatedAt       time.Time
}

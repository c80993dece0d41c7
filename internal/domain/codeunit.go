package domain

import "github.com/cortexmind/cortexd/internal/ids"

// CodeUnitKind enumerates the shapes of semantic entity extraction emits.
type CodeUnitKind string

const (
	UnitFunction      CodeUnitKind = "FUNCTION"
	UnitMethod        CodeUnitKind = "METHOD"
	UnitAsyncFunction CodeUnitKind = "ASYNC_FUNCTION"
	UnitClass         CodeUnitKind = "CLASS"
	UnitStruct        CodeUnitKind = "STRUCT"
	UnitEnum          CodeUnitKind = "ENUM"
	UnitInterface     CodeUnitKind = "INTERFACE" // trait/interface
	UnitTypeAlias     CodeUnitKind = "TYPE_ALIAS"
	UnitConst         CodeUnitKind = "CONST"
	UnitModule        CodeUnitKind = "MODULE"
)

// Visibility classifies a code unit's exposure.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityPrivate   Visibility = "PRIVATE"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityInternal  Visibility = "INTERNAL"
	VisibilityPackage   Visibility = "PACKAGE"
)

// UnitStatus tracks a code unit's place in its lifecycle.
type UnitStatus string

const (
	UnitActive     UnitStatus = "ACTIVE"
	UnitDeprecated UnitStatus = "DEPRECATED"
	UnitRemoved    UnitStatus = "REMOVED"
)

// Complexity holds the structural complexity metrics computed during
// extraction (cyclomatic/cognitive complexity, nesting, size).
type Complexity struct {
	Cyclomatic int
	Cognitive  int
	Nesting    int
	Lines      int
	Parameters int
	Returns    int
}

// Parameter describes one formal parameter of a code unit's signature.
type Parameter struct {
	Name         string
	Type         string
	DefaultValue string
	IsVariadic   bool
}

// CodeUnit is a single extracted semantic entity: a function, method,
// class, or other named construct within a source file.
type CodeUnit struct {
	ID             ids.Id
	WorkspaceID    ids.Id
	Kind           CodeUnitKind
	Name           string
	QualifiedName  string
	DisplayName    string
	FilePath       string
	StartLine      int // 1-indexed
	EndLine        int // 1-indexed
	StartColumn    int
	EndColumn      int
	StartByte      int
	EndByte        int
	Language       Language
	Signature      string
	Body           string
	Docstring      string
	Visibility     Visibility
	Parameters     []Parameter
	TypeParameters []string
	ReturnType     string
	Attributes     []string
	IsAsync        bool
	IsUnsafe       bool
	IsConst        bool
	Complexity     Complexity
	HasTests       bool
	HasDocumentation bool
	Embedding      []float32
	EmbeddingModel string
	LanguageSpecific map[string]any
	Status         UnitStatus
	Version        uint64
}

// LineCount returns end_line-start_line+1, counting both end lines.
func (u CodeUnit) LineCount() int {
	return u.EndLine - u.StartLine + 1
}

// DependencyKind enumerates the five edge kinds the extractor emits.
type DependencyKind string

const (
	DepCalls     DependencyKind = "CALLS"
	DepUsesType  DependencyKind = "USES_TYPE"
	DepImplements DependencyKind = "IMPLEMENTS"
	DepInherits  DependencyKind = "INHERITS"
	DepImports   DependencyKind = "IMPORTS"
)

// DependencyEdge connects two code units (referenced by qualified name
// at extraction time; resolved to Id on insert into semantic memory).
type DependencyEdge struct {
	FromUnit   string // qualified name
	ToUnit     string // qualified name
	Kind       DependencyKind
	Attributes map[string]string
}

// Key returns the (from, to, kind) dedup key for insert-time deduplication.
func (e DependencyEdge) Key() [3]string {
	return [3]string{e.FromUnit, e.ToUnit, string(e.Kind)}
}

// Package analysis turns source bytes into domain.CodeUnit and
// domain.DependencyEdge records via tree-sitter parsing: one pass detects
// unit boundaries (functions, methods, classes, structs, ...), a second
// pass over each unit's subtree detects calls, type references, and
// inheritance edges.
package analysis

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/cortexmind/cortexd/internal/domain"
)

// LanguageConfig describes how analysis reads one language: its file
// extensions, tree-sitter grammar, and the node kinds that mark units,
// calls, imports, comments, decision points and blocks.
type LanguageConfig struct {
	Language   domain.Language
	Extensions []string
	TSLanguage *sitter.Language

	// NodeKinds maps tree-sitter node type names to the CodeUnitKind they
	// produce when encountered during extraction.
	NodeKinds map[string]domain.CodeUnitKind

	// NameField is the field name holding a unit's identifier, when the
	// grammar exposes one (most do).
	NameField string

	// CallNodeKinds are node kinds representing a call expression.
	CallNodeKinds []string
	// ImportNodeKinds are node kinds representing an import/use statement.
	ImportNodeKinds []string
	// CommentKinds are node kinds tree-sitter uses for comments, consulted
	// when looking for a preceding doc comment.
	CommentKinds []string
	// DecisionKinds are node kinds that add one to cyclomatic complexity
	// when encountered (if/for/while/case/catch/&&/||/?:).
	DecisionKinds []string
	// BlockKinds are node kinds that introduce a nesting level for the
	// nesting-depth metric (bodies, blocks, suites).
	BlockKinds []string
}

// Registry is a read-only, pre-populated set of LanguageConfig entries for
// every language analysis supports. It is safe for concurrent read access
// since it is built once at package init and never mutated afterward.
type Registry struct {
	mu        sync.RWMutex
	byLang    map[domain.Language]*LanguageConfig
	byExt     map[string]domain.Language
}

func newRegistry() *Registry {
	r := &Registry{
		byLang: make(map[domain.Language]*LanguageConfig),
		byExt:  make(map[string]domain.Language),
	}
	r.register(goConfig())
	r.register(typescriptConfig())
	r.register(tsxConfig())
	r.register(javascriptConfig())
	r.register(pythonConfig())
	r.register(cConfig())
	r.register(cppConfig())
	return r
}

func (r *Registry) register(cfg *LanguageConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[cfg.Language] = cfg
	for _, ext := range cfg.Extensions {
		r.byExt[ext] = cfg.Language
	}
}

// ByLanguage returns the config for a domain.Language.
func (r *Registry) ByLanguage(lang domain.Language) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byLang[lang]
	return cfg, ok
}

// ByExtension resolves a file extension (with or without leading dot) to a
// domain.Language.
func (r *Registry) ByExtension(ext string) (domain.Language, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.byExt[ext]
	return lang, ok
}

var defaultRegistry = newRegistry()

// DefaultRegistry returns the package-wide language registry.
func DefaultRegistry() *Registry { return defaultRegistry }

func goConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:   domain.LanguageGo,
		Extensions: []string{".go"},
		TSLanguage: golang.GetLanguage(),
		NodeKinds: map[string]domain.CodeUnitKind{
			"function_declaration": domain.UnitFunction,
			"method_declaration":   domain.UnitMethod,
			"type_declaration":     domain.UnitStruct,
			"const_declaration":    domain.UnitConst,
		},
		NameField:       "name",
		CallNodeKinds:   []string{"call_expression"},
		ImportNodeKinds: []string{"import_declaration"},
		CommentKinds:    []string{"comment"},
		DecisionKinds: []string{
			"if_statement", "for_statement", "expression_case", "type_case",
			"communication_case", "binary_expression",
		},
		BlockKinds: []string{"block"},
	}
}

func typescriptConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:   domain.LanguageTypeScript,
		Extensions: []string{".ts"},
		TSLanguage: typescript.GetLanguage(),
		NodeKinds: map[string]domain.CodeUnitKind{
			"function_declaration":  domain.UnitFunction,
			"method_definition":     domain.UnitMethod,
			"class_declaration":     domain.UnitClass,
			"interface_declaration": domain.UnitInterface,
			"type_alias_declaration": domain.UnitTypeAlias,
			"enum_declaration":      domain.UnitEnum,
		},
		NameField:       "name",
		CallNodeKinds:   []string{"call_expression"},
		ImportNodeKinds: []string{"import_statement"},
		CommentKinds:    []string{"comment"},
		DecisionKinds: []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"switch_case", "catch_clause", "binary_expression", "ternary_expression",
		},
		BlockKinds: []string{"statement_block"},
	}
}

func tsxConfig() *LanguageConfig {
	cfg := *typescriptConfig()
	cfg.Language = domain.LanguageTSX
	cfg.Extensions = []string{".tsx"}
	cfg.TSLanguage = tsx.GetLanguage()
	return &cfg
}

func javascriptConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:   domain.LanguageJavaScript,
		Extensions: []string{".js", ".mjs", ".jsx"},
		TSLanguage: javascript.GetLanguage(),
		NodeKinds: map[string]domain.CodeUnitKind{
			"function_declaration": domain.UnitFunction,
			"method_definition":    domain.UnitMethod,
			"class_declaration":    domain.UnitClass,
		},
		NameField:       "name",
		CallNodeKinds:   []string{"call_expression"},
		ImportNodeKinds: []string{"import_statement"},
		CommentKinds:    []string{"comment"},
		DecisionKinds: []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"switch_case", "catch_clause", "binary_expression", "ternary_expression",
		},
		BlockKinds: []string{"statement_block"},
	}
}

func cConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:   domain.LanguageC,
		Extensions: []string{".c", ".h"},
		TSLanguage: c.GetLanguage(),
		NodeKinds: map[string]domain.CodeUnitKind{
			"function_definition": domain.UnitFunction,
			"struct_specifier":    domain.UnitStruct,
		},
		NameField:       "declarator",
		CallNodeKinds:   []string{"call_expression"},
		ImportNodeKinds: []string{"preproc_include"},
		CommentKinds:    []string{"comment"},
		DecisionKinds: []string{
			"if_statement", "for_statement", "while_statement", "do_statement",
			"case_statement", "binary_expression", "conditional_expression",
		},
		BlockKinds: []string{"compound_statement"},
	}
}

func cppConfig() *LanguageConfig {
	cfg := *cConfig()
	cfg.Language = domain.LanguageCPP
	cfg.Extensions = []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}
	cfg.TSLanguage = cpp.GetLanguage()
	cfg.NodeKinds = map[string]domain.CodeUnitKind{
		"function_definition": domain.UnitFunction,
		"struct_specifier":    domain.UnitStruct,
		"class_specifier":     domain.UnitClass,
	}
	return &cfg
}

func pythonConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:   domain.LanguagePython,
		Extensions: []string{".py"},
		TSLanguage: python.GetLanguage(),
		NodeKinds: map[string]domain.CodeUnitKind{
			"function_definition": domain.UnitFunction,
			"class_definition":    domain.UnitClass,
		},
		NameField:       "name",
		CallNodeKinds:   []string{"call"},
		ImportNodeKinds: []string{"import_statement", "import_from_statement"},
		CommentKinds:    []string{"comment"},
		DecisionKinds: []string{
			"if_statement", "for_statement", "while_statement", "elif_clause",
			"except_clause", "boolean_operator", "conditional_expression",
		},
		BlockKinds: []string{"block"},
	}
}

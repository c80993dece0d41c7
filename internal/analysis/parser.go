package analysis

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
)

// Parser wraps a tree-sitter parser configured from the language registry.
// A Parser is not safe for concurrent use; callers needing concurrent
// parsing should construct one Parser per goroutine.
type Parser struct {
	ts       *sitter.Parser
	registry *Registry
}

// NewParser constructs a Parser backed by the default language registry.
func NewParser() *Parser {
	return &Parser{ts: sitter.NewParser(), registry: DefaultRegistry()}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// ParseTree is a parsed file: its root node, source bytes, and the
// language config used to parse it.
type ParseTree struct {
	Root   *sitter.Node
	Source []byte
	Config *LanguageConfig
}

// Parse parses source as lang, returning the root node.
func (p *Parser) Parse(ctx context.Context, source []byte, lang domain.Language) (*ParseTree, error) {
	cfg, ok := p.registry.ByLanguage(lang)
	if !ok {
		return nil, cerrors.InvalidInput("analysis: unsupported language: " + string(lang))
	}

	p.ts.SetLanguage(cfg.TSLanguage)
	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindParse, "analysis: parse failed", err)
	}
	if tree == nil {
		return nil, cerrors.New(cerrors.KindParse, "analysis: parser returned nil tree")
	}

	return &ParseTree{Root: tree.RootNode(), Source: source, Config: cfg}, nil
}

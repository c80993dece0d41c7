package analysis

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// PreprocFile is the preprocessor data extracted from one C/C++ file.
type PreprocFile struct {
	// DirectIncludes are the include directives written in this file.
	DirectIncludes map[string]struct{}
	// IndirectIncludes are includes reachable transitively, populated by
	// BuildIncludeGraph.
	IndirectIncludes map[string]struct{}
	// Macros holds every #define name (object-like or function-like) this
	// file introduces, excluding reserved keywords. #undef directives are
	// not recorded.
	Macros map[string]struct{}
}

// NewPreprocFile returns an empty PreprocFile with its sets initialized.
func NewPreprocFile() *PreprocFile {
	return &PreprocFile{
		DirectIncludes:   map[string]struct{}{},
		IndirectIncludes: map[string]struct{}{},
		Macros:           map[string]struct{}{},
	}
}

// PreprocResults maps file paths to their preprocessor data.
type PreprocResults struct {
	Files map[string]*PreprocFile
}

// NewPreprocResults returns an empty PreprocResults.
func NewPreprocResults() *PreprocResults {
	return &PreprocResults{Files: map[string]*PreprocFile{}}
}

// specialKeywords are reserved C/C++ identifiers that a preproc_def node
// can shadow (e.g. "#define size_t unsigned long" in a compatibility
// shim) but that should never be reported as a project macro.
var specialKeywords = map[string]struct{}{
	"NULL": {}, "bool": {}, "char": {}, "char16_t": {}, "char32_t": {}, "char8_t": {},
	"const": {}, "constexpr": {}, "double": {}, "explicit": {}, "false": {}, "float": {},
	"inline": {}, "int": {}, "int16_t": {}, "int32_t": {}, "int64_t": {}, "int8_t": {},
	"long": {}, "mutable": {}, "namespace": {}, "nullptr": {}, "restrict": {}, "short": {},
	"signed": {}, "size_t": {}, "ssize_t": {}, "static": {}, "true": {},
	"uint16_t": {}, "uint32_t": {}, "uint64_t": {}, "uint8_t": {},
	"unsigned": {}, "wchar_t": {}, "void": {},
}

func isSpecialKeyword(name string) bool {
	_, ok := specialKeywords[name]
	return ok
}

// ExtractPreprocessor walks tree and records every #include path and
// #define name it finds, storing them in results under filePath. #undef
// directives are ignored.
func ExtractPreprocessor(tree *ParseTree, filePath string, results *PreprocResults) {
	file := NewPreprocFile()

	if tree != nil && tree.Root != nil {
		stack := []*sitter.Node{tree.Root}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch node.Type() {
			case "preproc_def", "preproc_function_def":
				if name := node.ChildByFieldName("name"); name != nil {
					macroName := name.Content(tree.Source)
					if !isSpecialKeyword(macroName) {
						file.Macros[macroName] = struct{}{}
					}
				}
			case "preproc_include":
				if pathNode := node.ChildByFieldName("path"); pathNode != nil {
					cleaned := cleanIncludePath(pathNode.Content(tree.Source))
					if cleaned != "" {
						file.DirectIncludes[cleaned] = struct{}{}
					}
				}
			}

			for i := int(node.ChildCount()) - 1; i >= 0; i-- {
				stack = append(stack, node.Child(i))
			}
		}
	}

	results.Files[filePath] = file
}

// cleanIncludePath strips the quotes or angle brackets around an include
// directive's path operand.
func cleanIncludePath(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return strings.TrimSpace(s)
}

// BuildIncludeGraph resolves every file's direct includes against
// allFiles (a filename to candidate full-path index), contracts any
// include cycle it finds into a single node via Kosaraju's algorithm, and
// propagates the resulting reachability into each file's
// IndirectIncludes.
func BuildIncludeGraph(files map[string]*PreprocFile, allFiles map[string][]string) {
	adjOut := map[string][]string{}
	adjIn := map[string][]string{}
	nodes := make([]string, 0, len(files))
	seen := map[string]struct{}{}
	addNode := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	addEdge := func(from, to string) {
		adjOut[from] = append(adjOut[from], to)
		adjIn[to] = append(adjIn[to], from)
	}

	for filePath := range files {
		addNode(filePath)
	}
	for filePath, fileData := range files {
		for include := range fileData.DirectIncludes {
			for _, resolved := range resolveInclude(filePath, include, allFiles) {
				if resolved == filePath {
					continue
				}
				addNode(resolved)
				addEdge(filePath, resolved)
			}
		}
	}

	sccs := kosarajuSCC(nodes, adjOut, adjIn)

	representative := map[string]string{}
	cycleMembers := map[string][]string{}
	for i, component := range sccs {
		if len(component) <= 1 {
			continue
		}
		synthetic := fmt.Sprintf("\x00cycle:%d", i)
		cycleMembers[synthetic] = append([]string(nil), component...)
		for _, n := range component {
			representative[n] = synthetic
		}
	}
	repOf := func(n string) string {
		if r, ok := representative[n]; ok {
			return r
		}
		return n
	}

	contracted := map[string]map[string]struct{}{}
	for from, tos := range adjOut {
		rf := repOf(from)
		for _, to := range tos {
			rt := repOf(to)
			if rf == rt {
				continue
			}
			if contracted[rf] == nil {
				contracted[rf] = map[string]struct{}{}
			}
			contracted[rf][rt] = struct{}{}
		}
	}

	for filePath, fileData := range files {
		start := repOf(filePath)
		visited := map[string]bool{start: true}
		stack := []string{start}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if members, ok := cycleMembers[n]; ok {
				for _, m := range members {
					fileData.IndirectIncludes[m] = struct{}{}
				}
			} else if n != filePath {
				fileData.IndirectIncludes[n] = struct{}{}
			}

			for nb := range contracted[n] {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
}

// kosarajuSCC partitions nodes into strongly connected components using
// Kosaraju's two-pass algorithm: an iterative DFS over the forward graph
// records a finishing order, then an iterative DFS over the transposed
// graph (adjIn), processed in reverse finishing order, peels off one
// component per root.
func kosarajuSCC(nodes []string, adjOut, adjIn map[string][]string) [][]string {
	visited := map[string]bool{}
	var order []string

	type frame struct {
		node string
		idx  int
	}
	for _, start := range nodes {
		if visited[start] {
			continue
		}
		visited[start] = true
		stack := []*frame{{node: start}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			neighbors := adjOut[top.node]
			if top.idx < len(neighbors) {
				next := neighbors[top.idx]
				top.idx++
				if !visited[next] {
					visited[next] = true
					stack = append(stack, &frame{node: next})
				}
				continue
			}
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	assigned := map[string]bool{}
	var sccs [][]string
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if assigned[root] {
			continue
		}
		var component []string
		stack := []string{root}
		assigned[root] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, n)
			for _, nb := range adjIn[n] {
				if !assigned[nb] {
					assigned[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		sccs = append(sccs, component)
	}
	return sccs
}

// resolveInclude maps an #include operand to candidate full paths under
// currentFile, preferring (in order) an exact suffix match when the include
// names a directory part, a candidate in the including file's own
// directory, then falling back to every candidate sharing the include's
// filename.
func resolveInclude(currentFile, includePath string, allFiles map[string][]string) []string {
	includeFilename := path.Base(includePath)

	candidates, ok := allFiles[includeFilename]
	if !ok {
		return nil
	}
	if len(candidates) == 1 {
		return candidates
	}

	var exact []string
	for _, candidate := range candidates {
		if includePath != includeFilename && strings.HasSuffix(candidate, includePath) {
			exact = append(exact, candidate)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	currentDir := path.Dir(currentFile)
	var sameDir []string
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, currentDir) {
			sameDir = append(sameDir, candidate)
		}
	}
	if len(sameDir) > 0 {
		return sameDir
	}

	return candidates
}

// GetAllMacros returns every macro visible to file: its own, plus every
// macro defined in a file it indirectly includes.
func GetAllMacros(file string, files map[string]*PreprocFile) map[string]struct{} {
	macros := map[string]struct{}{}
	fileData, ok := files[file]
	if !ok {
		return macros
	}

	for m := range fileData.Macros {
		macros[m] = struct{}{}
	}
	for include := range fileData.IndirectIncludes {
		if includeData, ok := files[include]; ok {
			for m := range includeData.Macros {
				macros[m] = struct{}{}
			}
		}
	}
	return macros
}

// Package vpath implements the virtual filesystem's path type: an
// absolute, slash-separated sequence of non-empty UTF-8 segments,
// independent of the host operating system's path conventions.
package vpath

import (
	"strings"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// Path is an absolute virtual path. The zero value has no segments and
// is the root path, equal to Root; use Parse to construct any other.
type Path struct {
	segments []string
}

// Root is the path "/".
var Root = Path{segments: nil}

// Parse validates and constructs a Path from its canonical string form.
// The string must start with "/", contain no empty segments (i.e. no
// "//"), and no segment may be "." or ".." or contain a NUL byte.
func Parse(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, cerrors.InvalidInput("virtual path must be absolute: " + s)
	}
	if s == "/" {
		return Root, nil
	}
	raw := strings.Split(strings.TrimPrefix(s, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		if err := validateSegment(seg); err != nil {
			return Path{}, err
		}
		segments = append(segments, seg)
	}
	return Path{segments: segments}, nil
}

// MustParse is Parse but panics on error, for static literals.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validateSegment(seg string) error {
	if seg == "" {
		return cerrors.InvalidInput("virtual path contains an empty segment")
	}
	if seg == "." || seg == ".." {
		return cerrors.InvalidInput("virtual path segment must not be \".\" or \"..\": " + seg)
	}
	if strings.ContainsRune(seg, 0) {
		return cerrors.InvalidInput("virtual path segment contains a NUL byte")
	}
	return nil
}

// String renders the canonical form, always starting with "/".
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.segments, "/")
}

// Segments returns the path's segments, excluding the leading slash.
// The returned slice must not be mutated by the caller.
func (p Path) Segments() []string {
	return p.segments
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Equal reports segment-by-segment equality with other.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if seg != other.segments[i] {
			return false
		}
	}
	return true
}

// Parent returns the path's parent and true, or the zero Path and false
// if p is already root.
func (p Path) Parent() (Path, bool) {
	if len(p.segments) == 0 {
		return Path{}, false
	}
	return Path{segments: p.segments[:len(p.segments)-1]}, true
}

// Join appends a single segment, returning an error if it is invalid.
func (p Path) Join(segment string) (Path, error) {
	if err := validateSegment(segment); err != nil {
		return Path{}, err
	}
	next := make([]string, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = segment
	return Path{segments: next}, nil
}

// FileName returns the final segment, or "" for the root path.
func (p Path) FileName() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Extension returns the file extension (without the dot) of the final
// segment, or "" if there is none.
func (p Path) Extension() string {
	name := p.FileName()
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

// Depth returns the number of segments (0 for root).
func (p Path) Depth() int {
	return len(p.segments)
}

// HasPrefix reports whether prefix is a segment-wise prefix of p or
// equal to it, i.e. whether p lies at or below prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, seg := range prefix.segments {
		if p.segments[i] != seg {
			return false
		}
	}
	return true
}

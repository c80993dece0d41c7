package vpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RejectsRelativePaths(t *testing.T) {
	_, err := Parse("relative/path")
	require.Error(t, err)
}

func TestParse_RejectsDotSegments(t *testing.T) {
	_, err := Parse("/a/../b")
	require.Error(t, err)

	_, err = Parse("/a/./b")
	require.Error(t, err)
}

func TestParse_RejectsEmptySegments(t *testing.T) {
	_, err := Parse("/a//b")
	require.Error(t, err)
}

func TestParse_Root(t *testing.T) {
	p, err := Parse("/")
	require.NoError(t, err)
	assert.True(t, p.IsRoot())
	assert.Equal(t, "/", p.String())
}

func TestPath_ParentAndJoinRoundTrip(t *testing.T) {
	p := MustParse("/src/main.go")

	parent, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, "/src", parent.String())

	rejoined, err := parent.Join("main.go")
	require.NoError(t, err)
	assert.True(t, p.Equal(rejoined))
}

func TestPath_RootHasNoParent(t *testing.T) {
	_, ok := Root.Parent()
	assert.False(t, ok)
}

func TestPath_FileNameAndExtension(t *testing.T) {
	p := MustParse("/pkg/domain/codeunit.go")
	assert.Equal(t, "codeunit.go", p.FileName())
	assert.Equal(t, "go", p.Extension())
}

func TestPath_ExtensionEmptyWhenNoDot(t *testing.T) {
	p := MustParse("/README")
	assert.Equal(t, "", p.Extension())
}

func TestPath_HasPrefix(t *testing.T) {
	dir := MustParse("/src")
	file := MustParse("/src/nested/main.go")
	other := MustParse("/pkg/main.go")

	assert.True(t, file.HasPrefix(dir))
	assert.False(t, other.HasPrefix(dir))
	assert.True(t, dir.HasPrefix(Root))
}

func TestPath_Equal(t *testing.T) {
	a := MustParse("/a/b/c")
	b := MustParse("/a/b/c")
	c := MustParse("/a/b/d")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MergesProjectFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "vector:\n  mode: dual_write\n  dimension: 1536\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cortexd.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "dual_write", cfg.Vector.Mode)
	assert.Equal(t, 1536, cfg.Vector.Dimension)
	// untouched fields keep their defaults
	assert.Equal(t, "modernc", cfg.Storage.Driver)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cortexd.yaml"), []byte("vector:\n  mode: dual_write\n"), 0o644))
	t.Setenv("CORTEXD_VECTOR_MODE", "new_primary")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "new_primary", cfg.Vector.Mode)
}

func TestValidate_RejectsBadConnectionBounds(t *testing.T) {
	cfg := Default()
	cfg.Storage.MinConnections = 10
	cfg.Storage.MaxConnections = 2
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownVectorMode(t *testing.T) {
	cfg := Default()
	cfg.Vector.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := Default()
	cfg.Cognitive.RecencyWeight = 0.9
	assert.Error(t, cfg.Validate())
}

func TestFindProjectRoot_StopsAtGitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_StopsAtConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cortexd.yaml"), []byte("version: 1\n"), 0o644))
	nested := filepath.Join(root, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_FallsBackToStartDirWhenNothingFound(t *testing.T) {
	dir := t.TempDir()

	found, err := FindProjectRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, found)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".cortexd.yaml")
	cfg := Default()

	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir) // reads the written file back through loadYAML
	require.NoError(t, err)
	assert.NotNil(t, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "single_store")
}

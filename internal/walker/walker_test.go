package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExtensionsForKind(t *testing.T) {
	assert.Equal(t, []string{"go"}, ExtensionsForKind("go"))
	assert.Equal(t, []string{"ts", "tsx", "js", "jsx"}, ExtensionsForKind("npm"))
	assert.Nil(t, ExtensionsForKind("unknown-kind"))
}

func TestWalkFindsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "sub", "lib.go"), "package sub")
	writeFile(t, filepath.Join(dir, "readme.md"), "docs")

	files, err := Walk(dir, []string{"go"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0] < files[1], "results must be sorted")
}

func TestWalkSkipsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "leftpad", "index.js"), "module.exports={}")
	writeFile(t, filepath.Join(dir, "src", "index.js"), "export default 1")

	files, err := Walk(dir, []string{"js"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "src")
}

func TestWalkSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git", "hooks.go"), "package hooks")
	writeFile(t, filepath.Join(dir, "main.go"), "package main")

	files, err := Walk(dir, []string{"go"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestWalkSkipsGeneratedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "thing.pb.go"), "package thing")
	writeFile(t, filepath.Join(dir, "thing_test.go"), "package thing")
	writeFile(t, filepath.Join(dir, "thing.go"), "package thing")

	files, err := Walk(dir, []string{"go"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "thing.go")
}

func TestWalkSkipsBuildRs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.rs"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "lib.rs"), "pub fn hello() {}")

	files, err := Walk(dir, []string{"rs"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "lib.rs")
}

func TestWalkEmptyExtensionsMatchesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	files, err := Walk(dir, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

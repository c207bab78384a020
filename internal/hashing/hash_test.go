package hashing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileKnownContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", h)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile("/nonexistent/file.txt")
	assert.Error(t, err)
}

func TestSourceTreeHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), []byte("package lib"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	h1, err := SourceTreeHash(dir, []string{"go"}, nil)
	require.NoError(t, err)
	h2, err := SourceTreeHash(dir, []string{"go"}, nil)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestSourceTreeHashChangesOnAdd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), []byte("package lib"), 0o644))
	h1, err := SourceTreeHash(dir, []string{"go"}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.go"), []byte("package lib"), 0o644))
	h2, err := SourceTreeHash(dir, []string{"go"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSourceTreeHashEmptyDir(t *testing.T) {
	dir := t.TempDir()
	h, err := SourceTreeHash(dir, []string{"go"}, nil)
	require.NoError(t, err)
	assert.Equal(t, emptyHash, h)
}

func TestSourceTreeHashMissingDir(t *testing.T) {
	h, err := SourceTreeHash(filepath.Join(t.TempDir(), "missing"), []string{"go"}, nil)
	require.NoError(t, err)
	assert.Equal(t, emptyHash, h)
}

func TestFileTreeHashOrderIndependent(t *testing.T) {
	a := []FileTreeEntry{{"src/main.go", 100}, {"src/lib.go", 200}}
	b := []FileTreeEntry{{"src/lib.go", 200}, {"src/main.go", 100}}
	assert.Equal(t, FileTreeHash(a), FileTreeHash(b))
}

func TestFileTreeHashChangesOnAddition(t *testing.T) {
	a := []FileTreeEntry{{"src/main.go", 100}}
	b := []FileTreeEntry{{"src/main.go", 100}, {"src/lib.go", 200}}
	assert.NotEqual(t, FileTreeHash(a), FileTreeHash(b))
}

func TestFileTreeHashChangesOnSize(t *testing.T) {
	a := []FileTreeEntry{{"src/main.go", 100}}
	b := []FileTreeEntry{{"src/main.go", 101}}
	assert.NotEqual(t, FileTreeHash(a), FileTreeHash(b))
}

func TestFileTreeHashEmpty(t *testing.T) {
	assert.NotEmpty(t, FileTreeHash(nil))
}

func TestHasNewerSourceFilesFutureCutoff(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), []byte("package lib"), 0o644))
	future := time.Now().Add(time.Minute)
	assert.False(t, HasNewerSourceFiles(dir, []string{"go"}, nil, future))
}

func TestHasNewerSourceFilesPastCutoff(t *testing.T) {
	dir := t.TempDir()
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), []byte("package lib"), 0o644))
	assert.True(t, HasNewerSourceFiles(dir, []string{"go"}, nil, past))
}

func TestHasNewerSourceFilesMissingDir(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	assert.False(t, HasNewerSourceFiles(filepath.Join(t.TempDir(), "missing"), []string{"go"}, nil, past))
}

func TestHasNewerSourceFilesIgnoresNonMatchingExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644))
	past := time.Now().Add(-time.Minute)
	assert.False(t, HasNewerSourceFiles(dir, []string{"go"}, nil, past))
}

package buildindex

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shire/internal/config"
	"shire/internal/store"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module widgets\n\ngo 1.24\n")
	writeFile(t, root, "main.go", "package main\n\nfunc Run() {}\n")
	return root
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := store.OpenReadOnly(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBuildIndexesNewRepo(t *testing.T) {
	root := newRepo(t)
	dbPath := filepath.Join(root, ".shire", "index.db")

	result, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PackageCount)
	assert.Equal(t, 1, result.SymbolCount)
	assert.GreaterOrEqual(t, result.FileCount, 1)

	q := store.NewQuerier(openDB(t, dbPath))
	pkg, err := q.GetPackage("widgets")
	require.NoError(t, err)
	require.NotNil(t, pkg)

	syms, err := q.GetPackageSymbols("widgets", "")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Run", syms[0].Name)
}

func TestBuildSecondRunIsIncremental(t *testing.T) {
	root := newRepo(t)
	dbPath := filepath.Join(root, ".shire", "index.db")

	_, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)

	result, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PackageCount)
	assert.Equal(t, 1, result.SymbolCount)
}

func TestBuildDetectsNewSymbolOnSourceChange(t *testing.T) {
	root := newRepo(t)
	dbPath := filepath.Join(root, ".shire", "index.db")

	_, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)

	writeFile(t, root, "extra.go", "package main\n\nfunc Extra() {}\n")

	_, err = Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)

	q := store.NewQuerier(openDB(t, dbPath))
	syms, err := q.GetPackageSymbols("widgets", "")
	require.NoError(t, err)
	assert.Len(t, syms, 2)
}

func TestBuildRemovesDeletedPackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module app\n\ngo 1.24\n")
	writeFile(t, root, "web/package.json", `{"name":"web-app"}`)
	writeFile(t, root, "web/index.js", "export function run() {}\n")
	dbPath := filepath.Join(root, ".shire", "index.db")

	_, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "web")))

	result, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PackageCount)

	q := store.NewQuerier(openDB(t, dbPath))
	pkg, err := q.GetPackage("web-app")
	require.NoError(t, err)
	assert.Nil(t, pkg)
}

func TestBuildForceReextractsEverything(t *testing.T) {
	root := newRepo(t)
	dbPath := filepath.Join(root, ".shire", "index.db")

	_, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath})
	require.NoError(t, err)

	result, err := Build(Options{RepoRoot: root, Config: config.Default(), DBPath: dbPath, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SymbolCount)
}

func TestBuildAppliesDescriptionOverride(t *testing.T) {
	root := newRepo(t)
	dbPath := filepath.Join(root, ".shire", "index.db")

	cfg := config.Default()
	cfg.Packages = []config.PackageOverride{{Name: "widgets", Description: "curated description"}}

	_, err := Build(Options{RepoRoot: root, Config: cfg, DBPath: dbPath})
	require.NoError(t, err)

	q := store.NewQuerier(openDB(t, dbPath))
	pkg, err := q.GetPackage("widgets")
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "curated description", pkg.Description)
}

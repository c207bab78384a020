package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Querier {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := OpenOrCreate(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewQuerier(db)
}

func insertPackage(t *testing.T, q *Querier, name, path, kind, description string) {
	t.Helper()
	_, err := q.db.Exec(`INSERT INTO packages (name, path, kind, version, description, metadata)
		VALUES (?, ?, ?, '1.0.0', ?, '')`, name, path, kind, description)
	require.NoError(t, err)
}

func insertDependency(t *testing.T, q *Querier, pkg, dep string, internal bool) {
	t.Helper()
	_, err := q.db.Exec(`INSERT INTO dependencies (package, dependency, dep_kind, version_req, is_internal)
		VALUES (?, ?, 'runtime', '*', ?)`, pkg, dep, internal)
	require.NoError(t, err)
}

func TestOpenOrCreateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	db, err := OpenOrCreate(path)
	require.NoError(t, err)
	db.Close()

	db2, err := OpenOrCreate(path)
	require.NoError(t, err)
	defer db2.Close()
}

func TestOpenReadOnlyFailsWhenMissing(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestOpenReadOnlySucceedsAfterCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := OpenOrCreate(path)
	require.NoError(t, err)
	db.Close()

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()
}

func TestGetPackageRoundTrip(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "widgets", "widgets", "go", "widget toolkit")

	got, err := q.GetPackage("widgets")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "widgets", got.Name)
	assert.Equal(t, "widget toolkit", got.Description)

	none, err := q.GetPackage("nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSearchPackagesUsesFTS(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "widgets", "widgets", "go", "widget toolkit for building UIs")
	insertPackage(t, q, "gadgets", "gadgets", "go", "unrelated gadget helpers")

	results, err := q.SearchPackages("widget")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "widgets", results[0].Name)
}

func TestSearchPackagesReflectsDeleteAndUpdate(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "widgets", "widgets", "go", "widget toolkit")

	_, err := q.db.Exec(`UPDATE packages SET description = 'totally different' WHERE name = 'widgets'`)
	require.NoError(t, err)

	results, err := q.SearchPackages("widget")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = q.SearchPackages("different")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = q.db.Exec(`DELETE FROM packages WHERE name = 'widgets'`)
	require.NoError(t, err)

	results, err = q.SearchPackages("different")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPackageDependenciesAndDependents(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertPackage(t, q, "lib", "lib", "go", "")
	insertDependency(t, q, "app", "lib", true)
	insertDependency(t, q, "app", "external-thing", false)

	deps, err := q.PackageDependencies("app", false)
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	internalOnly, err := q.PackageDependencies("app", true)
	require.NoError(t, err)
	require.Len(t, internalOnly, 1)
	assert.Equal(t, "lib", internalOnly[0].DependencyName)

	dependents, err := q.PackageDependents("lib")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "app", dependents[0].Package)
}

func TestDependencyGraphBFSCycleSafe(t *testing.T) {
	q := openTestDB(t)
	for _, name := range []string{"a", "b", "c"} {
		insertPackage(t, q, name, name, "go", "")
	}
	insertDependency(t, q, "a", "b", true)
	insertDependency(t, q, "b", "c", true)
	insertDependency(t, q, "c", "a", true) // cycle back to root

	edges, err := q.DependencyGraph("a", 10, true)
	require.NoError(t, err)

	assert.Len(t, edges, 3)
	seen := map[string]bool{}
	for _, e := range edges {
		seen[e.From+"->"+e.To] = true
	}
	assert.True(t, seen["a->b"])
	assert.True(t, seen["b->c"])
	assert.True(t, seen["c->a"])
}

func TestDependencyGraphDepthClamp(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "a", "a", "go", "")
	insertPackage(t, q, "b", "b", "go", "")
	insertDependency(t, q, "a", "b", true)

	edges, err := q.DependencyGraph("a", 999, true)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestReverseDependencyGraph(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertPackage(t, q, "lib", "lib", "go", "")
	insertDependency(t, q, "app", "lib", true)

	edges, err := q.ReverseDependencyGraph("lib", 5)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "app", edges[0].To)
}

func TestListPackagesFilteredByKind(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "npm", "")
	insertPackage(t, q, "lib", "lib", "go", "")

	all, err := q.ListPackages("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	goOnly, err := q.ListPackages("go")
	require.NoError(t, err)
	require.Len(t, goOnly, 1)
	assert.Equal(t, "lib", goOnly[0].Name)
}

func insertSymbol(t *testing.T, q *Querier, pkg, filePath, name, kind string) {
	t.Helper()
	_, err := q.db.Exec(`INSERT INTO symbols
		(package, file_path, name, line, kind, signature, visibility, parent_symbol, return_type, parameters)
		VALUES (?, ?, ?, 1, ?, ?, 'public', '', '', '')`,
		pkg, filePath, name, kind, "func "+name+"()")
	require.NoError(t, err)
}

func TestSearchSymbolsScopedByPackageAndKind(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertSymbol(t, q, "app", "app/main.go", "Frobnicate", "function")
	insertSymbol(t, q, "app", "app/other.go", "Unrelated", "function")

	results, err := q.SearchSymbols("Frobnicate", "", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Frobnicate", results[0].Name)

	scoped, err := q.SearchSymbols("Frobnicate", "app", "function")
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	none, err := q.SearchSymbols("Frobnicate", "other-pkg", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetPackageSymbolsAndFileSymbols(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertSymbol(t, q, "app", "app/main.go", "Run", "function")
	insertSymbol(t, q, "app", "app/main.go", "helper", "function")

	byPkg, err := q.GetPackageSymbols("app", "")
	require.NoError(t, err)
	assert.Len(t, byPkg, 2)

	byFile, err := q.GetFileSymbols("app/main.go", "")
	require.NoError(t, err)
	assert.Len(t, byFile, 2)
}

func insertFile(t *testing.T, q *Querier, path, pkg, ext string) {
	t.Helper()
	_, err := q.db.Exec(`INSERT INTO files (path, package, extension) VALUES (?, ?, ?)`, path, pkg, ext)
	require.NoError(t, err)
}

func TestSearchFilesAndListPackageFiles(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertFile(t, q, "app/main.go", "app", "go")
	insertFile(t, q, "app/helper.go", "app", "go")

	found, err := q.SearchFiles("main", "", "")
	require.NoError(t, err)
	require.Len(t, found, 1)

	listed, err := q.ListPackageFiles("app", "go")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestPackagesByPathPrefix(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app-web", "services/web", "go", "")
	insertPackage(t, q, "app-api", "services/api", "go", "")
	insertPackage(t, q, "lib", "libs/lib", "go", "")

	matches, err := q.PackagesByPathPrefix("services/")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestExtensionDistribution(t *testing.T) {
	q := openTestDB(t)
	insertPackage(t, q, "app", "app", "go", "")
	insertFile(t, q, "app/a.go", "app", "go")
	insertFile(t, q, "app/b.go", "app", "go")
	insertFile(t, q, "app/c.ts", "app", "ts")

	dist, err := q.ExtensionDistribution()
	require.NoError(t, err)
	require.Len(t, dist, 2)
	assert.Equal(t, "go", dist[0].Extension)
	assert.Equal(t, 2, dist[0].Count)
}

func TestIndexStatus(t *testing.T) {
	q := openTestDB(t)
	_, err := q.db.Exec(`INSERT INTO shire_meta (key, value) VALUES
		('indexed_at', '2026-01-01T00:00:00Z'),
		('package_count', '3'),
		('symbol_count', '42'),
		('file_count', '9'),
		('total_duration_ms', '1500')`)
	require.NoError(t, err)

	status, err := q.IndexStatus()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", status.IndexedAt)
	assert.Equal(t, 3, status.PackageCount)
	assert.Equal(t, 42, status.SymbolCount)
	assert.Equal(t, int64(1500), status.TotalDurationMs)
}

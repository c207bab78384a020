package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"shire/internal/model"
)

// maxDependencyGraphDepth bounds traversal cost on pathological repos.
const maxDependencyGraphDepth = 20

// Querier serves the catalog's read-only operations over a shared
// connection. The tool server uses it against a read-only *sql.DB; it
// works the same over a writable one.
type Querier struct {
	db *sql.DB
	sf singleflight.Group
}

// NewQuerier wraps an already-opened connection.
func NewQuerier(db *sql.DB) *Querier {
	return &Querier{db: db}
}

// DependencyEdge is one row of a dependency_graph/reverse_dependency_graph
// traversal, tagged with the BFS depth it was discovered at.
type DependencyEdge struct {
	From  string
	To    string
	Depth int
}

func clampDepth(maxDepth int) int {
	if maxDepth <= 0 || maxDepth > maxDependencyGraphDepth {
		return maxDependencyGraphDepth
	}
	return maxDepth
}

// SearchPackages runs a full-text search over name/description/path,
// returning up to 20 matches ranked by FTS5's default bm25 ordering.
func (q *Querier) SearchPackages(query string) ([]model.Package, error) {
	rows, err := q.db.Query(`
		SELECT p.name, p.path, p.kind, p.version, p.description, p.metadata
		FROM packages_fts
		JOIN packages p ON p.rowid = packages_fts.rowid
		WHERE packages_fts MATCH ?
		ORDER BY rank
		LIMIT 20`, query)
	if err != nil {
		return nil, fmt.Errorf("store: search packages: %w", err)
	}
	defer rows.Close()
	return scanPackages(rows)
}

// GetPackage looks up a package by its exact name.
func (q *Querier) GetPackage(name string) (*model.Package, error) {
	row := q.db.QueryRow(`
		SELECT name, path, kind, version, description, metadata
		FROM packages WHERE name = ?`, name)
	var p model.Package
	var version, description, metadata sql.NullString
	if err := row.Scan(&p.Name, &p.Path, &p.Kind, &version, &description, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get package: %w", err)
	}
	p.Version = version.String
	p.Description = description.String
	p.Metadata = metadata.String
	return &p, nil
}

// PackageDependencies returns direct outgoing edges for name, optionally
// filtered to internal (catalog-resolved) dependencies only.
func (q *Querier) PackageDependencies(name string, internalOnly bool) ([]model.Dependency, error) {
	query := `SELECT package, dependency, dep_kind, version_req, is_internal
		FROM dependencies WHERE package = ?`
	args := []any{name}
	if internalOnly {
		query += " AND is_internal = 1"
	}
	query += " ORDER BY dependency"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: package dependencies: %w", err)
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// PackageDependents returns direct incoming edges for name.
func (q *Querier) PackageDependents(name string) ([]model.Dependency, error) {
	rows, err := q.db.Query(`
		SELECT package, dependency, dep_kind, version_req, is_internal
		FROM dependencies WHERE dependency = ? ORDER BY package`, name)
	if err != nil {
		return nil, fmt.Errorf("store: package dependents: %w", err)
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// DependencyGraph performs a breadth-first traversal of outgoing edges from
// root, visiting each node at most once and stopping once max_depth
// (clamped to 20) is reached or the queue empties. Concurrent calls for
// the same (root, maxDepth, internalOnly) during a rebuild collapse onto
// one underlying traversal via singleflight.
func (q *Querier) DependencyGraph(root string, maxDepth int, internalOnly bool) ([]DependencyEdge, error) {
	key := fmt.Sprintf("fwd:%s:%d:%t", root, maxDepth, internalOnly)
	return q.bfsOnce(key, func() ([]DependencyEdge, error) {
		return q.bfs(root, maxDepth, internalOnly, `
			SELECT dependency FROM dependencies WHERE package = ?`)
	})
}

// ReverseDependencyGraph is the symmetric traversal over incoming edges.
func (q *Querier) ReverseDependencyGraph(root string, maxDepth int) ([]DependencyEdge, error) {
	key := fmt.Sprintf("rev:%s:%d:%t", root, maxDepth, false)
	return q.bfsOnce(key, func() ([]DependencyEdge, error) {
		return q.bfs(root, maxDepth, false, `
			SELECT package FROM dependencies WHERE dependency = ?`)
	})
}

// bfsOnce collapses concurrent identical traversals behind singleflight so
// a burst of callers querying the same root while a rebuild is in flight
// shares one scan of the dependencies table instead of running it once per
// caller. Each caller still gets its own copy of the result slice.
func (q *Querier) bfsOnce(key string, run func() ([]DependencyEdge, error)) ([]DependencyEdge, error) {
	v, err, _ := q.sf.Do(key, func() (any, error) {
		return run()
	})
	if err != nil {
		return nil, err
	}
	edges := v.([]DependencyEdge)
	out := make([]DependencyEdge, len(edges))
	copy(out, edges)
	return out, nil
}

func (q *Querier) bfs(root string, maxDepth int, internalOnly bool, neighborQuery string) ([]DependencyEdge, error) {
	depth := clampDepth(maxDepth)
	if internalOnly {
		neighborQuery += " AND is_internal = 1"
	}

	visited := map[string]struct{}{root: {}}
	type queued struct {
		node  string
		depth int
	}
	queue := []queued{{node: root, depth: 0}}
	var edges []DependencyEdge

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}

		rows, err := q.db.Query(neighborQuery, cur.node)
		if err != nil {
			return nil, fmt.Errorf("store: dependency graph traversal: %w", err)
		}
		var neighbors []string
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: dependency graph scan: %w", err)
			}
			neighbors = append(neighbors, n)
		}
		rows.Close()

		for _, n := range neighbors {
			edges = append(edges, DependencyEdge{From: cur.node, To: n, Depth: cur.depth + 1})
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, queued{node: n, depth: cur.depth + 1})
		}
	}
	return edges, nil
}

// ListPackages returns every package, optionally filtered by kind, ordered
// by name.
func (q *Querier) ListPackages(kind string) ([]model.Package, error) {
	query := `SELECT name, path, kind, version, description, metadata FROM packages`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY name"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list packages: %w", err)
	}
	defer rows.Close()
	return scanPackages(rows)
}

// SearchSymbols runs a full-text search over symbol name/signature/
// parameters, optionally scoped to a package and/or symbol kind.
func (q *Querier) SearchSymbols(query, pkg, kind string) ([]model.Symbol, error) {
	sqlQuery := `
		SELECT s.package, s.file_path, s.name, s.line, s.kind, s.signature,
		       s.visibility, s.parent_symbol, s.return_type, s.parameters
		FROM symbols_fts
		JOIN symbols s ON s.rowid = symbols_fts.rowid
		WHERE symbols_fts MATCH ?`
	args := []any{query}
	if pkg != "" {
		sqlQuery += " AND s.package = ?"
		args = append(args, pkg)
	}
	if kind != "" {
		sqlQuery += " AND s.kind = ?"
		args = append(args, kind)
	}
	sqlQuery += " ORDER BY rank LIMIT 50"

	rows, err := q.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search symbols: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetSymbol looks up symbols by exact name, optionally scoped to a package.
func (q *Querier) GetSymbol(name, pkg string) ([]model.Symbol, error) {
	query := `SELECT package, file_path, name, line, kind, signature,
		visibility, parent_symbol, return_type, parameters
		FROM symbols WHERE name = ?`
	args := []any{name}
	if pkg != "" {
		query += " AND package = ?"
		args = append(args, pkg)
	}
	query += " ORDER BY file_path, line"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get symbol: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetPackageSymbols returns every symbol owned by pkg, optionally filtered
// by kind.
func (q *Querier) GetPackageSymbols(pkg, kind string) ([]model.Symbol, error) {
	query := `SELECT package, file_path, name, line, kind, signature,
		visibility, parent_symbol, return_type, parameters
		FROM symbols WHERE package = ?`
	args := []any{pkg}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY file_path, line"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get package symbols: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetFileSymbols returns every symbol declared in filePath, optionally
// filtered by kind.
func (q *Querier) GetFileSymbols(filePath, kind string) ([]model.Symbol, error) {
	query := `SELECT package, file_path, name, line, kind, signature,
		visibility, parent_symbol, return_type, parameters
		FROM symbols WHERE file_path = ?`
	args := []any{filePath}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY line"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get file symbols: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchFiles runs a full-text search over file path/name, optionally
// scoped to a package and/or extension.
func (q *Querier) SearchFiles(query, pkg, extension string) ([]model.File, error) {
	sqlQuery := `
		SELECT f.path, f.package, f.extension
		FROM files_fts
		JOIN files f ON f.rowid = files_fts.rowid
		WHERE files_fts MATCH ?`
	args := []any{query}
	if pkg != "" {
		sqlQuery += " AND f.package = ?"
		args = append(args, pkg)
	}
	if extension != "" {
		sqlQuery += " AND f.extension = ?"
		args = append(args, extension)
	}
	sqlQuery += " ORDER BY rank LIMIT 50"

	rows, err := q.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListPackageFiles returns every file owned by pkg, optionally filtered by
// extension.
func (q *Querier) ListPackageFiles(pkg, extension string) ([]model.File, error) {
	query := `SELECT path, package, extension FROM files WHERE package = ?`
	args := []any{pkg}
	if extension != "" {
		query += " AND extension = ?"
		args = append(args, extension)
	}
	query += " ORDER BY path"

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list package files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// PackagesByPathPrefix returns packages whose path starts with prefix,
// ordered by path.
func (q *Querier) PackagesByPathPrefix(prefix string) ([]model.Package, error) {
	rows, err := q.db.Query(`
		SELECT name, path, kind, version, description, metadata
		FROM packages WHERE path LIKE ? ESCAPE '\' ORDER BY path`,
		escapeLikePrefix(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("store: packages by path prefix: %w", err)
	}
	defer rows.Close()
	return scanPackages(rows)
}

// ExtensionCount is one row of the extension_distribution summary.
type ExtensionCount struct {
	Extension string
	Count     int
}

// ExtensionDistribution counts tracked files by extension, descending by
// count then ascending by extension name.
func (q *Querier) ExtensionDistribution() ([]ExtensionCount, error) {
	rows, err := q.db.Query(`
		SELECT extension, COUNT(*) AS n FROM files
		GROUP BY extension ORDER BY n DESC, extension ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: extension distribution: %w", err)
	}
	defer rows.Close()

	var out []ExtensionCount
	for rows.Next() {
		var e ExtensionCount
		var ext sql.NullString
		if err := rows.Scan(&ext, &e.Count); err != nil {
			return nil, fmt.Errorf("store: extension distribution scan: %w", err)
		}
		e.Extension = ext.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// IndexStatus reads the shire_meta table into a CatalogMetadata summary.
func (q *Querier) IndexStatus() (model.CatalogMetadata, error) {
	rows, err := q.db.Query(`SELECT key, value FROM shire_meta`)
	if err != nil {
		return model.CatalogMetadata{}, fmt.Errorf("store: index status: %w", err)
	}
	defer rows.Close()

	raw := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.CatalogMetadata{}, fmt.Errorf("store: index status scan: %w", err)
		}
		raw[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.CatalogMetadata{}, err
	}

	var meta model.CatalogMetadata
	meta.IndexedAt = raw["indexed_at"]
	meta.GitCommit = raw["git_commit"]
	meta.PackageCount = atoiOr(raw["package_count"], 0)
	meta.SymbolCount = atoiOr(raw["symbol_count"], 0)
	meta.FileCount = atoiOr(raw["file_count"], 0)
	meta.TotalDurationMs = int64(atoiOr(raw["total_duration_ms"], 0))
	return meta, nil
}

func scanPackages(rows *sql.Rows) ([]model.Package, error) {
	var out []model.Package
	for rows.Next() {
		var p model.Package
		var version, description, metadata sql.NullString
		if err := rows.Scan(&p.Name, &p.Path, &p.Kind, &version, &description, &metadata); err != nil {
			return nil, fmt.Errorf("store: scan package: %w", err)
		}
		p.Version = version.String
		p.Description = description.String
		p.Metadata = metadata.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanDependencies(rows *sql.Rows) ([]model.Dependency, error) {
	var out []model.Dependency
	for rows.Next() {
		var d model.Dependency
		var versionReq sql.NullString
		var isInternal int
		var depKind string
		if err := rows.Scan(&d.Package, &d.DependencyName, &depKind, &versionReq, &isInternal); err != nil {
			return nil, fmt.Errorf("store: scan dependency: %w", err)
		}
		d.DepKind = model.DepKind(depKind)
		d.VersionReq = versionReq.String
		d.IsInternal = isInternal != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSymbols(rows *sql.Rows) ([]model.Symbol, error) {
	var out []model.Symbol
	for rows.Next() {
		var s model.Symbol
		var kind, parentSymbol, returnType, parametersJSON sql.NullString
		if err := rows.Scan(&s.Package, &s.FilePath, &s.Name, &s.Line, &kind,
			&s.Signature, &s.Visibility, &parentSymbol, &returnType, &parametersJSON); err != nil {
			return nil, fmt.Errorf("store: scan symbol: %w", err)
		}
		s.Kind = model.SymbolKind(kind.String)
		s.ParentSymbol = parentSymbol.String
		s.ReturnType = returnType.String
		s.Parameters = decodeParameters(parametersJSON.String)
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanFiles(rows *sql.Rows) ([]model.File, error) {
	var out []model.File
	for rows.Next() {
		var f model.File
		var pkg, ext sql.NullString
		if err := rows.Scan(&f.Path, &pkg, &ext); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		f.Package = pkg.String
		f.Extension = ext.String
		out = append(out, f)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePrefix(prefix string) string {
	return likeEscaper.Replace(prefix)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func decodeParameters(raw string) []model.Parameter {
	if raw == "" {
		return nil
	}
	var params []model.Parameter
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil
	}
	return params
}

func encodeParameters(params []model.Parameter) string {
	if len(params) == 0 {
		return ""
	}
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}

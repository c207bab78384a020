// Package buildindex implements the incremental build orchestrator: it
// diffs freshly discovered packages against the catalog, rewrites only
// what changed, and rebuilds the file index wholesale, all inside one
// write transaction.
package buildindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shire/internal/config"
	"shire/internal/discovery"
	"shire/internal/hashing"
	"shire/internal/logging"
	"shire/internal/model"
	"shire/internal/store"
	"shire/internal/symbols"
	"shire/internal/walker"
)

// Options configures one build run.
type Options struct {
	RepoRoot string
	Config   config.Config
	DBPath   string // overrides Config.DBPathOrDefault when non-empty
	Force    bool
}

// Result summarizes a completed build for CLI reporting and catalog
// metadata.
type Result struct {
	PackageCount    int
	SymbolCount     int
	FileCount       int
	TotalDurationMs int64
}

// Build runs the ten-step incremental build described by the catalog
// design: load-or-create the store, diff discovery output against the
// catalog, rewrite only changed packages, rebuild the file index, apply
// overrides, and record metadata — all within a single transaction.
func Build(opts Options) (Result, error) {
	start := time.Now()
	log := logging.Get(logging.CategoryBuild)

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = opts.Config.DBPathOrDefault(opts.RepoRoot)
	}

	db, err := store.OpenOrCreate(dbPath)
	if err != nil {
		return Result{}, fmt.Errorf("buildindex: open store: %w", err)
	}
	defer db.Close()

	candidates, err := discovery.Discover(opts.RepoRoot, opts.Config)
	if err != nil {
		return Result{}, fmt.Errorf("buildindex: discover: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return Result{}, fmt.Errorf("buildindex: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	existing, err := loadExistingPackages(tx)
	if err != nil {
		return Result{}, err
	}

	plan := classify(candidates, existing, opts.Force)

	if err := removePackages(tx, plan.removed); err != nil {
		return Result{}, err
	}

	candidateNames := map[string]struct{}{}
	for _, c := range candidates {
		candidateNames[c.Record.Name] = struct{}{}
	}

	registry := symbols.NewRegistry(opts.Config.Symbols.ExcludeExtensions)
	defer registry.Close()

	for _, c := range plan.newPackages {
		if err := upsertPackage(tx, c, plan.manifestHashes[c.Record.Name]); err != nil {
			return Result{}, err
		}
		if err := rewriteDependencies(tx, c.Record, candidateNames); err != nil {
			return Result{}, err
		}
		if err := reextractSymbols(tx, opts.RepoRoot, c.Record, registry); err != nil {
			return Result{}, err
		}
	}
	for _, c := range plan.updatedPackages {
		if err := upsertPackage(tx, c, plan.manifestHashes[c.Record.Name]); err != nil {
			return Result{}, err
		}
		if err := rewriteDependencies(tx, c.Record, candidateNames); err != nil {
			return Result{}, err
		}
		if err := reextractSymbols(tx, opts.RepoRoot, c.Record, registry); err != nil {
			return Result{}, err
		}
	}
	for _, c := range plan.unchangedPackages {
		changed, err := sourceHashChanged(tx, opts.RepoRoot, c.Record, opts.Force)
		if err != nil {
			return Result{}, err
		}
		if changed {
			if err := reextractSymbols(tx, opts.RepoRoot, c.Record, registry); err != nil {
				return Result{}, err
			}
		}
	}

	if err := rebuildFileIndex(tx, opts.RepoRoot, candidates); err != nil {
		return Result{}, err
	}

	if err := applyOverrides(tx, opts.Config.Packages); err != nil {
		return Result{}, err
	}

	counts, err := countAll(tx)
	if err != nil {
		return Result{}, err
	}

	meta := model.CatalogMetadata{
		IndexedAt:       time.Now().UTC().Format(time.RFC3339),
		GitCommit:       bestEffortGitCommit(opts.RepoRoot),
		PackageCount:    counts.packages,
		SymbolCount:     counts.symbols,
		FileCount:       counts.files,
		TotalDurationMs: time.Since(start).Milliseconds(),
	}
	if err := writeMetadata(tx, meta); err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("buildindex: commit: %w", err)
	}
	committed = true

	log.Info("build complete",
		"packages", meta.PackageCount, "symbols", meta.SymbolCount,
		"files", meta.FileCount, "duration_ms", meta.TotalDurationMs)

	return Result{
		PackageCount:    meta.PackageCount,
		SymbolCount:     meta.SymbolCount,
		FileCount:       meta.FileCount,
		TotalDurationMs: meta.TotalDurationMs,
	}, nil
}

type existingPackage struct {
	model.Package
	manifestHash string
}

func loadExistingPackages(tx *sql.Tx) (map[string]existingPackage, error) {
	rows, err := tx.Query(`SELECT name, path, kind, version, description, metadata FROM packages`)
	if err != nil {
		return nil, fmt.Errorf("buildindex: load packages: %w", err)
	}
	defer rows.Close()

	out := map[string]existingPackage{}
	for rows.Next() {
		var p model.Package
		var version, description, metadata sql.NullString
		if err := rows.Scan(&p.Name, &p.Path, &p.Kind, &version, &description, &metadata); err != nil {
			return nil, fmt.Errorf("buildindex: scan package: %w", err)
		}
		p.Version, p.Description, p.Metadata = version.String, description.String, metadata.String
		out[p.Name] = existingPackage{Package: p, manifestHash: extractManifestHash(p.Metadata)}
	}
	return out, rows.Err()
}

type buildPlan struct {
	newPackages       []discovery.Candidate
	updatedPackages   []discovery.Candidate
	unchangedPackages []discovery.Candidate
	removed           []string
	manifestHashes    map[string]string
}

// classify partitions discovered candidates against the catalog's existing
// rows by comparing manifest content hashes; force bypasses the comparison
// and treats every candidate as updated.
func classify(candidates []discovery.Candidate, existing map[string]existingPackage, force bool) buildPlan {
	plan := buildPlan{manifestHashes: map[string]string{}}
	seen := map[string]struct{}{}

	for _, c := range candidates {
		seen[c.Record.Name] = struct{}{}
		h := manifestHash(c.Record)
		plan.manifestHashes[c.Record.Name] = h

		prev, ok := existing[c.Record.Name]
		switch {
		case !ok:
			plan.newPackages = append(plan.newPackages, c)
		case force || prev.manifestHash != h:
			plan.updatedPackages = append(plan.updatedPackages, c)
		default:
			plan.unchangedPackages = append(plan.unchangedPackages, c)
		}
	}

	for name := range existing {
		if _, ok := seen[name]; !ok {
			plan.removed = append(plan.removed, name)
		}
	}
	sort.Strings(plan.removed)
	return plan
}

// removePackages deletes a removed package's rows in FK-safe order:
// dependencies, symbols, source hash, file index, then the package itself.
func removePackages(tx *sql.Tx, names []string) error {
	for _, name := range names {
		for _, stmt := range []string{
			`DELETE FROM dependencies WHERE package = ?`,
			`DELETE FROM symbols WHERE package = ?`,
			`DELETE FROM source_hashes WHERE package = ?`,
			`DELETE FROM files WHERE package = ?`,
			`DELETE FROM packages WHERE name = ?`,
		} {
			if _, err := tx.Exec(stmt, name); err != nil {
				return fmt.Errorf("buildindex: remove package %s: %w", name, err)
			}
		}
	}
	return nil
}

// upsertPackage writes a package row with upsert semantics, preserving the
// existing row's identity across rebuilds of the same package.
func upsertPackage(tx *sql.Tx, c discovery.Candidate, manifestHashValue string) error {
	r := c.Record
	metadata := encodeMetadata(r.Metadata, manifestHashValue)
	_, err := tx.Exec(`
		INSERT INTO packages (name, path, kind, version, description, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			kind = excluded.kind,
			version = excluded.version,
			description = excluded.description,
			metadata = excluded.metadata`,
		r.Name, r.Path, r.Kind, r.Version, r.Description, metadata)
	if err != nil {
		return fmt.Errorf("buildindex: upsert package %s: %w", r.Name, err)
	}
	return nil
}

func rewriteDependencies(tx *sql.Tx, r model.ManifestRecord, candidateNames map[string]struct{}) error {
	if _, err := tx.Exec(`DELETE FROM dependencies WHERE package = ?`, r.Name); err != nil {
		return fmt.Errorf("buildindex: clear dependencies for %s: %w", r.Name, err)
	}
	for _, dep := range r.Dependencies {
		_, isInternal := candidateNames[dep.Name]
		_, err := tx.Exec(`
			INSERT INTO dependencies (package, dependency, dep_kind, version_req, is_internal)
			VALUES (?, ?, ?, ?, ?)`,
			r.Name, dep.Name, string(dep.DepKind), dep.VersionReq, isInternal)
		if err != nil {
			return fmt.Errorf("buildindex: insert dependency %s->%s: %w", r.Name, dep.Name, err)
		}
	}
	return nil
}

// sourceHashChanged compares the package's current source-tree hash
// against the stored value, writing the new hash to source_hashes whenever
// it reports a change (hash differs, no stored row, or force) so the
// comparison is accurate on the next build.
func sourceHashChanged(tx *sql.Tx, repoRoot string, r model.ManifestRecord, force bool) (bool, error) {
	extensions := walker.ExtensionsForKind(r.Kind)
	packageDir := filepath.Join(repoRoot, filepath.FromSlash(r.Path))
	exclude := walker.NewExcludeSet(walker.DefaultExclude)

	newHash, err := hashing.SourceTreeHash(packageDir, extensions, exclude)
	if err != nil {
		return false, fmt.Errorf("buildindex: source tree hash for %s: %w", r.Name, err)
	}

	var storedHash string
	err = tx.QueryRow(`SELECT source_hash FROM source_hashes WHERE package = ?`, r.Name).Scan(&storedHash)
	changed := force || err == sql.ErrNoRows || storedHash != newHash
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("buildindex: read source hash for %s: %w", r.Name, err)
	}

	if changed {
		_, err := tx.Exec(`
			INSERT INTO source_hashes (package, source_hash) VALUES (?, ?)
			ON CONFLICT(package) DO UPDATE SET source_hash = excluded.source_hash`,
			r.Name, newHash)
		if err != nil {
			return false, fmt.Errorf("buildindex: write source hash for %s: %w", r.Name, err)
		}
	}
	return changed, nil
}

// reextractSymbols deletes and reinserts every symbol for r's package,
// transactional within the surrounding build transaction, and refreshes
// its source hash.
func reextractSymbols(tx *sql.Tx, repoRoot string, r model.ManifestRecord, registry *symbols.Registry) error {
	extensions := walker.ExtensionsForKind(r.Kind)
	packageDir := filepath.Join(repoRoot, filepath.FromSlash(r.Path))
	exclude := walker.NewExcludeSet(walker.DefaultExclude)

	files, err := walker.Walk(packageDir, extensions, exclude)
	if err != nil {
		return fmt.Errorf("buildindex: walk %s: %w", r.Name, err)
	}

	var allSymbols []model.Symbol
	for _, abs := range files {
		content, err := os.ReadFile(abs)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(repoRoot, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, sym := range registry.ExtractFile(rel, content) {
			sym.Package = r.Name
			allSymbols = append(allSymbols, sym)
		}
	}

	if _, err := tx.Exec(`DELETE FROM symbols WHERE package = ?`, r.Name); err != nil {
		return fmt.Errorf("buildindex: clear symbols for %s: %w", r.Name, err)
	}
	for _, s := range allSymbols {
		params := encodeParametersJSON(s.Parameters)
		_, err := tx.Exec(`
			INSERT INTO symbols
				(package, file_path, name, line, kind, signature, visibility, parent_symbol, return_type, parameters)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Package, s.FilePath, s.Name, s.Line, string(s.Kind), s.Signature,
			string(s.Visibility), s.ParentSymbol, s.ReturnType, params)
		if err != nil {
			return fmt.Errorf("buildindex: insert symbol %s.%s: %w", r.Name, s.Name, err)
		}
	}

	newHash, err := hashing.SourceTreeHash(packageDir, extensions, exclude)
	if err != nil {
		return fmt.Errorf("buildindex: source tree hash for %s: %w", r.Name, err)
	}
	_, err = tx.Exec(`
		INSERT INTO source_hashes (package, source_hash) VALUES (?, ?)
		ON CONFLICT(package) DO UPDATE SET source_hash = excluded.source_hash`,
		r.Name, newHash)
	if err != nil {
		return fmt.Errorf("buildindex: write source hash for %s: %w", r.Name, err)
	}
	return nil
}

// rebuildFileIndex clears and repopulates the files table for every
// extension any ecosystem or symbol extractor understands, associating
// each file with the package whose path is its longest matching prefix.
func rebuildFileIndex(tx *sql.Tx, repoRoot string, candidates []discovery.Candidate) error {
	if _, err := tx.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("buildindex: clear files: %w", err)
	}

	exclude := walker.NewExcludeSet(walker.DefaultExclude)
	files, err := walker.Walk(repoRoot, AllTrackedExtensions, exclude)
	if err != nil {
		return fmt.Errorf("buildindex: walk file index: %w", err)
	}

	type pkgPath struct {
		name string
		path string
	}
	owners := make([]pkgPath, 0, len(candidates))
	for _, c := range candidates {
		owners = append(owners, pkgPath{name: c.Record.Name, path: c.Record.Path})
	}
	sort.Slice(owners, func(i, j int) bool { return len(owners[i].path) > len(owners[j].path) })

	for _, abs := range files {
		rel, err := filepath.Rel(repoRoot, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		owner := ""
		for _, o := range owners {
			if o.path == "" || rel == o.path || strings.HasPrefix(rel, o.path+"/") {
				owner = o.name
				break
			}
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), "."))
		var ownerValue any
		if owner != "" {
			ownerValue = owner
		}
		_, err = tx.Exec(`INSERT INTO files (path, package, extension) VALUES (?, ?, ?)`, rel, ownerValue, ext)
		if err != nil {
			return fmt.Errorf("buildindex: insert file %s: %w", rel, err)
		}
	}
	return nil
}

// AllTrackedExtensions is the union of every extension any ecosystem or
// symbol extractor understands, used to scope the wholesale file index and
// the watcher's relevance filter.
var AllTrackedExtensions = []string{
	"go", "ts", "tsx", "js", "jsx", "py", "rs", "java", "kt",
	"rb", "pl", "pm", "proto",
}

func applyOverrides(tx *sql.Tx, overrides []config.PackageOverride) error {
	for _, o := range overrides {
		_, err := tx.Exec(`UPDATE packages SET description = ? WHERE name = ?`, o.Description, o.Name)
		if err != nil {
			return fmt.Errorf("buildindex: apply override for %s: %w", o.Name, err)
		}
	}
	return nil
}

type tableCounts struct {
	packages, symbols, files int
}

func countAll(tx *sql.Tx) (tableCounts, error) {
	var c tableCounts
	if err := tx.QueryRow(`SELECT COUNT(*) FROM packages`).Scan(&c.packages); err != nil {
		return c, err
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&c.symbols); err != nil {
		return c, err
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&c.files); err != nil {
		return c, err
	}
	return c, nil
}

func writeMetadata(tx *sql.Tx, meta model.CatalogMetadata) error {
	kv := map[string]string{
		"indexed_at":        meta.IndexedAt,
		"git_commit":        meta.GitCommit,
		"package_count":     fmt.Sprintf("%d", meta.PackageCount),
		"symbol_count":      fmt.Sprintf("%d", meta.SymbolCount),
		"file_count":        fmt.Sprintf("%d", meta.FileCount),
		"total_duration_ms": fmt.Sprintf("%d", meta.TotalDurationMs),
	}
	for k, v := range kv {
		_, err := tx.Exec(`
			INSERT INTO shire_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return fmt.Errorf("buildindex: write metadata %s: %w", k, err)
		}
	}
	return nil
}

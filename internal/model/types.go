// Package model defines the record shapes persisted by the catalog store
// and produced by manifest parsers and symbol extractors.
package model

// DepKind is the relationship a Dependency has to its owning package.
type DepKind string

const (
	DepRuntime DepKind = "runtime"
	DepDev     DepKind = "dev"
	DepPeer    DepKind = "peer"
	DepBuild   DepKind = "build"
)

// SymbolKind enumerates the extracted symbol shapes.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolClass     SymbolKind = "class"
	SymbolStruct    SymbolKind = "struct"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
	SymbolEnum      SymbolKind = "enum"
	SymbolTrait     SymbolKind = "trait"
	SymbolMethod    SymbolKind = "method"
	SymbolConstant  SymbolKind = "constant"
)

// Visibility is the exported-ness of a Symbol.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
)

// Package is a discovered unit of source organized around a manifest or a
// custom discovery rule match. Path is unique across the catalog.
type Package struct {
	Name        string
	Path        string
	Kind        string
	Version     string
	Description string
	Metadata    string // opaque JSON blob, or ""
}

// Dependency is a directed edge from Package to DependencyName.
type Dependency struct {
	Package        string
	DependencyName string
	DepKind        DepKind
	VersionReq     string
	IsInternal     bool
}

// Parameter is one entry in a Symbol's parameter list.
type Parameter struct {
	Name string
	Type string
}

// Symbol is an extracted, externally-visible declaration.
type Symbol struct {
	Package      string
	FilePath     string
	Name         string
	Line         int
	Kind         SymbolKind
	Signature    string
	Visibility   Visibility
	ParentSymbol string
	ReturnType   string
	Parameters   []Parameter
}

// File is one catalog-tracked file, optionally owned by a Package.
type File struct {
	Path      string
	Package   string // "" if unowned
	Extension string // lowercased, no leading dot
}

// SourceHash is the last computed aggregate source-tree hash for a package.
type SourceHash struct {
	Package    string
	SourceHash string
}

// CatalogMetadata is the key/value row set summarizing the most recent build.
type CatalogMetadata struct {
	IndexedAt       string
	GitCommit       string
	PackageCount    int
	SymbolCount     int
	FileCount       int
	TotalDurationMs int64
}

// ManifestRecord is the common shape every manifest parser produces.
type ManifestRecord struct {
	Name         string
	Path         string
	Kind         string
	Version      string
	Description  string
	Metadata     string
	Dependencies []ManifestDependency
}

// ManifestDependency is a dependency as declared in a manifest file, before
// is_internal has been resolved against the full package set.
type ManifestDependency struct {
	Name       string
	VersionReq string
	DepKind    DepKind
}

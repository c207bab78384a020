package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"shire/internal/store"
)

// toolSchema is the subset of a JSON Schema tools/list needs to advertise
// a tool's input shape.
type toolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolHandler func(q *store.Querier, args json.RawMessage) (string, error)

type toolEntry struct {
	schema  toolSchema
	handler toolHandler
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return string(b), nil
}

// tools is the fixed set of tools this server registers, each mapping
// directly to one query-layer call.
var tools = []toolEntry{
	{
		schema: toolSchema{
			Name:        "search_packages",
			Description: "Search packages by name or description using full-text search",
			InputSchema: objectSchema([]string{"query"}, map[string]any{"query": stringProp("search text")}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct{ Query string `json:"query"` }
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if strings.TrimSpace(p.Query) == "" {
				return "Search query must not be empty", nil
			}
			results, err := q.SearchPackages(p.Query)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "get_package",
			Description: "Get full details for a specific package by exact name",
			InputSchema: objectSchema([]string{"name"}, map[string]any{"name": stringProp("exact package name")}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct{ Name string `json:"name"` }
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			pkg, err := q.GetPackage(p.Name)
			if err != nil {
				return "", err
			}
			if pkg == nil {
				return fmt.Sprintf("Package '%s' not found", p.Name), nil
			}
			return toJSON(pkg)
		},
	},
	{
		schema: toolSchema{
			Name:        "package_dependencies",
			Description: "List what a package depends on. Set internal_only=true to see only dependencies that are other packages in this repo.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":          stringProp("package name"),
				"internal_only": boolProp("restrict to internal dependencies"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct {
				Name         string `json:"name"`
				InternalOnly bool   `json:"internal_only"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			results, err := q.PackageDependencies(p.Name, p.InternalOnly)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "package_dependents",
			Description: "Find all packages that depend on this package (reverse dependency lookup)",
			InputSchema: objectSchema([]string{"name"}, map[string]any{"name": stringProp("package name")}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct{ Name string `json:"name"` }
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			results, err := q.PackageDependents(p.Name)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "dependency_graph",
			Description: "Get the transitive dependency graph starting from a package. Returns a list of edges. Set internal_only=true to only follow dependencies within this repo.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":          stringProp("root package"),
				"depth":         intProp("maximum depth to traverse (default 3, clamped to 20)"),
				"internal_only": boolProp("restrict to internal dependencies"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			p := struct {
				Name         string `json:"name"`
				Depth        int    `json:"depth"`
				InternalOnly bool   `json:"internal_only"`
			}{Depth: 3}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			edges, err := q.DependencyGraph(p.Name, p.Depth, p.InternalOnly)
			if err != nil {
				return "", err
			}
			return toJSON(edges)
		},
	},
	{
		schema: toolSchema{
			Name:        "list_packages",
			Description: `List all indexed packages, optionally filtered by kind ("npm", "go", "cargo", "python", ...)`,
			InputSchema: objectSchema(nil, map[string]any{"kind": stringProp("ecosystem kind filter")}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct{ Kind string `json:"kind"` }
			_ = json.Unmarshal(args, &p)
			results, err := q.ListPackages(p.Kind)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "search_symbols",
			Description: "Search symbols (functions, classes, types, etc.) by name or signature using full-text search. Returns matching symbols with file location, signature, parameters, and return type.",
			InputSchema: objectSchema([]string{"query"}, map[string]any{
				"query":   stringProp("search text"),
				"package": stringProp("restrict to a package"),
				"kind":    stringProp("restrict to a symbol kind"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var p struct {
				Query   string `json:"query"`
				Package string `json:"package"`
				Kind    string `json:"kind"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if strings.TrimSpace(p.Query) == "" {
				return "Search query must not be empty", nil
			}
			results, err := q.SearchSymbols(p.Query, p.Package, p.Kind)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "get_package_symbols",
			Description: "List all symbols in a package. Useful for understanding a package's public API.",
			InputSchema: objectSchema([]string{"package"}, map[string]any{
				"package": stringProp("exact package name"),
				"kind":    stringProp("restrict to a symbol kind"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var r struct {
				Package string `json:"package"`
				Kind    string `json:"kind"`
			}
			if err := json.Unmarshal(args, &r); err != nil {
				return "", err
			}
			results, err := q.GetPackageSymbols(r.Package, r.Kind)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "get_symbol",
			Description: "Get details for a specific symbol by exact name. Returns all symbols matching that name across packages.",
			InputSchema: objectSchema([]string{"name"}, map[string]any{
				"name":    stringProp("exact symbol name"),
				"package": stringProp("restrict to a package"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var r struct {
				Name    string `json:"name"`
				Package string `json:"package"`
			}
			if err := json.Unmarshal(args, &r); err != nil {
				return "", err
			}
			results, err := q.GetSymbol(r.Name, r.Package)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "get_file_symbols",
			Description: "List all symbols defined in a specific file.",
			InputSchema: objectSchema([]string{"file_path"}, map[string]any{
				"file_path": stringProp("file path relative to the repo root"),
				"kind":      stringProp("restrict to a symbol kind"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var r struct {
				FilePath string `json:"file_path"`
				Kind     string `json:"kind"`
			}
			if err := json.Unmarshal(args, &r); err != nil {
				return "", err
			}
			results, err := q.GetFileSymbols(r.FilePath, r.Kind)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "search_files",
			Description: "Search files by path or name using full-text search.",
			InputSchema: objectSchema([]string{"query"}, map[string]any{
				"query":     stringProp("search text"),
				"package":   stringProp("restrict to a package"),
				"extension": stringProp("restrict to a file extension"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var r struct {
				Query     string `json:"query"`
				Package   string `json:"package"`
				Extension string `json:"extension"`
			}
			if err := json.Unmarshal(args, &r); err != nil {
				return "", err
			}
			if strings.TrimSpace(r.Query) == "" {
				return "Search query must not be empty", nil
			}
			results, err := q.SearchFiles(r.Query, r.Package, r.Extension)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "list_package_files",
			Description: "List all files belonging to a specific package. Optionally filter by file extension.",
			InputSchema: objectSchema([]string{"package"}, map[string]any{
				"package":   stringProp("exact package name"),
				"extension": stringProp("restrict to a file extension"),
			}),
		},
		handler: func(q *store.Querier, args json.RawMessage) (string, error) {
			var r struct {
				Package   string `json:"package"`
				Extension string `json:"extension"`
			}
			if err := json.Unmarshal(args, &r); err != nil {
				return "", err
			}
			results, err := q.ListPackageFiles(r.Package, r.Extension)
			if err != nil {
				return "", err
			}
			return toJSON(results)
		},
	},
	{
		schema: toolSchema{
			Name:        "index_status",
			Description: "Get index status: when it was built, git commit, package/symbol/file counts, and build duration in milliseconds",
			InputSchema: objectSchema(nil, map[string]any{}),
		},
		handler: func(q *store.Querier, _ json.RawMessage) (string, error) {
			status, err := q.IndexStatus()
			if err != nil {
				return "", err
			}
			return toJSON(status)
		},
	},
}

func findTool(name string) (toolEntry, bool) {
	for _, t := range tools {
		if t.schema.Name == name {
			return t, true
		}
	}
	return toolEntry{}, false
}

package mcpserver

import (
	"fmt"
	"sort"
	"strings"

	"shire/internal/model"
	"shire/internal/store"
)

// promptArg describes one named argument a prompt accepts.
type promptArg struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type promptSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Arguments   []promptArg `json:"arguments,omitempty"`
}

type promptHandler func(q *store.Querier, args map[string]string) (string, error)

type promptEntry struct {
	schema  promptSchema
	handler promptHandler
}

// prompts is the fixed set of briefing templates this server assembles by
// composing several query-layer calls into one formatted document.
var prompts = []promptEntry{
	{
		schema: promptSchema{
			Name:        "explore",
			Description: "Semantic codebase exploration: search packages, symbols, and files for a concept and return a structured context map",
			Arguments: []promptArg{
				{Name: "query", Description: `concept to explore (e.g. "authentication", "error handling")`, Required: true},
			},
		},
		handler: promptExplore,
	},
	{
		schema: promptSchema{
			Name:        "explore-package",
			Description: "Deep dive into a specific package: metadata, internal dependencies, dependents, public API surface, and file tree",
			Arguments: []promptArg{
				{Name: "name", Description: "exact package name", Required: true},
			},
		},
		handler: promptExplorePackage,
	},
	{
		schema: promptSchema{
			Name:        "explore-area",
			Description: "Explore a directory subtree: list packages, files, and symbol summaries under a path prefix",
			Arguments: []promptArg{
				{Name: "path", Description: `directory prefix to explore (e.g. "services/auth/")`, Required: true},
			},
		},
		handler: promptExploreArea,
	},
	{
		schema: promptSchema{
			Name:        "onboard",
			Description: "Repository overview for onboarding: tech stack, package counts by ecosystem, file distribution, index freshness",
		},
		handler: promptOnboard,
	},
	{
		schema: promptSchema{
			Name:        "impact-analysis",
			Description: "Analyze blast radius: what breaks if this package changes, showing direct and transitive dependents",
			Arguments: []promptArg{
				{Name: "name", Description: "package name to analyze impact for", Required: true},
			},
		},
		handler: promptImpactAnalysis,
	},
	{
		schema: promptSchema{
			Name:        "understand-dependency",
			Description: "Understand how one package depends on another: trace the dependency path between two packages",
			Arguments: []promptArg{
				{Name: "from", Description: "source package (the one that depends)", Required: true},
				{Name: "to", Description: "target package (the dependency)", Required: true},
			},
		},
		handler: promptUnderstandDependency,
	},
}

func findPrompt(name string) (promptEntry, bool) {
	for _, p := range prompts {
		if p.schema.Name == name {
			return p, true
		}
	}
	return promptEntry{}, false
}

func requireArg(args map[string]string, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	return v, nil
}

func descOrEmpty(pkg model.Package) string {
	return pkg.Description
}

func signatureOrName(s model.Symbol) string {
	if s.Signature != "" {
		return s.Signature
	}
	return s.Name
}

func promptExplore(q *store.Querier, args map[string]string) (string, error) {
	query, err := requireArg(args, "query")
	if err != nil {
		return "", err
	}

	packages, err := q.SearchPackages(query)
	if err != nil {
		return "", err
	}
	symbols, err := q.SearchSymbols(query, "", "")
	if err != nil {
		return "", err
	}
	files, err := q.SearchFiles(query, "", "")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Codebase exploration: %q\n\n", query)

	symbolsByPkg := map[string][]model.Symbol{}
	for _, s := range symbols {
		symbolsByPkg[s.Package] = append(symbolsByPkg[s.Package], s)
	}
	filesByPkg := map[string][]model.File{}
	for _, f := range files {
		filesByPkg[f.Package] = append(filesByPkg[f.Package], f)
	}

	if len(packages) == 0 && len(symbols) == 0 && len(files) == 0 {
		b.WriteString("No results found.\n")
		return b.String(), nil
	}

	matchedPkgNames := map[string]struct{}{}
	if len(packages) > 0 {
		fmt.Fprintf(&b, "## Matching packages (%d)\n\n", len(packages))
		for _, pkg := range packages {
			matchedPkgNames[pkg.Name] = struct{}{}
			fmt.Fprintf(&b, "### %s (%s)\n", pkg.Name, pkg.Kind)
			fmt.Fprintf(&b, "- **Path:** `%s`\n", pkg.Path)
			if pkg.Version != "" {
				fmt.Fprintf(&b, "- **Version:** %s\n", pkg.Version)
			}
			if d := descOrEmpty(pkg); d != "" {
				fmt.Fprintf(&b, "- **Description:** %s\n", d)
			}
			if syms := symbolsByPkg[pkg.Name]; len(syms) > 0 {
				fmt.Fprintf(&b, "\n**Matching symbols (%d):**\n", len(syms))
				for _, s := range syms {
					fmt.Fprintf(&b, "- `%s` (%s) — `%s:%d`\n", signatureOrName(s), s.Kind, s.FilePath, s.Line)
				}
			}
			if fls := filesByPkg[pkg.Name]; len(fls) > 0 {
				fmt.Fprintf(&b, "\n**Matching files (%d):**\n", len(fls))
				for _, f := range fls {
					fmt.Fprintf(&b, "- `%s`\n", f.Path)
				}
			}
			b.WriteString("\n")
		}
	}

	var orphanSymbols []model.Symbol
	for _, s := range symbols {
		if _, ok := matchedPkgNames[s.Package]; !ok {
			orphanSymbols = append(orphanSymbols, s)
		}
	}
	if len(orphanSymbols) > 0 {
		fmt.Fprintf(&b, "## Additional symbol matches (%d)\n\n", len(orphanSymbols))
		for _, s := range orphanSymbols {
			fmt.Fprintf(&b, "- `%s` (%s) in **%s** — `%s:%d`\n", signatureOrName(s), s.Kind, s.Package, s.FilePath, s.Line)
		}
		b.WriteString("\n")
	}

	var orphanFiles []model.File
	for _, f := range files {
		if f.Package == "" {
			orphanFiles = append(orphanFiles, f)
			continue
		}
		if _, ok := matchedPkgNames[f.Package]; !ok {
			orphanFiles = append(orphanFiles, f)
		}
	}
	if len(orphanFiles) > 0 {
		fmt.Fprintf(&b, "## Additional file matches (%d)\n\n", len(orphanFiles))
		for _, f := range orphanFiles {
			label := f.Package
			if label == "" {
				label = "(unowned)"
			}
			fmt.Fprintf(&b, "- `%s` [%s]\n", f.Path, label)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func promptExplorePackage(q *store.Querier, args map[string]string) (string, error) {
	name, err := requireArg(args, "name")
	if err != nil {
		return "", err
	}
	pkg, err := q.GetPackage(name)
	if err != nil {
		return "", err
	}
	if pkg == nil {
		return "", fmt.Errorf("package '%s' not found", name)
	}

	internalDeps, err := q.PackageDependencies(name, true)
	if err != nil {
		return "", err
	}
	dependents, err := q.PackageDependents(name)
	if err != nil {
		return "", err
	}
	symbols, err := q.GetPackageSymbols(name, "")
	if err != nil {
		return "", err
	}
	files, err := q.ListPackageFiles(name, "")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Package: %s\n\n", pkg.Name)

	b.WriteString("## Metadata\n\n")
	fmt.Fprintf(&b, "- **Kind:** %s\n", pkg.Kind)
	fmt.Fprintf(&b, "- **Path:** `%s`\n", pkg.Path)
	if pkg.Version != "" {
		fmt.Fprintf(&b, "- **Version:** %s\n", pkg.Version)
	}
	if pkg.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", pkg.Description)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Internal dependencies (%d)\n\n", len(internalDeps))
	if len(internalDeps) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, d := range internalDeps {
			fmt.Fprintf(&b, "- **%s** (%s) %s\n", d.DependencyName, d.DepKind, d.VersionReq)
		}
		b.WriteString("\n")
	}

	var internalDependents []model.Dependency
	for _, d := range dependents {
		if d.IsInternal {
			internalDependents = append(internalDependents, d)
		}
	}
	fmt.Fprintf(&b, "## Depended on by (%d)\n\n", len(internalDependents))
	if len(internalDependents) == 0 {
		b.WriteString("No internal packages depend on this.\n\n")
	} else {
		for _, d := range internalDependents {
			fmt.Fprintf(&b, "- **%s** (%s)\n", d.Package, d.DepKind)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Symbols (%d)\n\n", len(symbols))
	if len(symbols) == 0 {
		b.WriteString("No symbols extracted.\n\n")
	} else {
		byKind := map[string][]model.Symbol{}
		for _, s := range symbols {
			byKind[string(s.Kind)] = append(byKind[string(s.Kind)], s)
		}
		var kinds []string
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			syms := byKind[kind]
			fmt.Fprintf(&b, "### %s (%d)\n\n", kind, len(syms))
			for _, s := range syms {
				fmt.Fprintf(&b, "- `%s` — `%s:%d`\n", signatureOrName(s), s.FilePath, s.Line)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "## Files (%d)\n\n", len(files))
	if len(files) == 0 {
		b.WriteString("No files indexed.\n\n")
	} else {
		for _, f := range files {
			fmt.Fprintf(&b, "- `%s`\n", f.Path)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func promptExploreArea(q *store.Querier, args map[string]string) (string, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return "", err
	}

	packages, err := q.PackagesByPathPrefix(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Area: `%s`\n\n", path)

	if len(packages) == 0 {
		b.WriteString("No packages found under this path.\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "## Packages (%d)\n\n", len(packages))
	for _, pkg := range packages {
		fmt.Fprintf(&b, "### %s (%s)\n", pkg.Name, pkg.Kind)
		fmt.Fprintf(&b, "- **Path:** `%s`\n", pkg.Path)
		if pkg.Description != "" {
			fmt.Fprintf(&b, "- **Description:** %s\n", pkg.Description)
		}

		symbols, err := q.GetPackageSymbols(pkg.Name, "")
		if err != nil {
			return "", err
		}
		if len(symbols) > 0 {
			counts := map[string]int{}
			for _, s := range symbols {
				counts[string(s.Kind)]++
			}
			type kindCount struct {
				kind  string
				count int
			}
			var ordered []kindCount
			for k, c := range counts {
				ordered = append(ordered, kindCount{k, c})
			}
			sort.Slice(ordered, func(i, j int) bool { return ordered[i].count > ordered[j].count })
			parts := make([]string, 0, len(ordered))
			for _, kc := range ordered {
				parts = append(parts, fmt.Sprintf("%d %ss", kc.count, kc.kind))
			}
			fmt.Fprintf(&b, "- **Symbols:** %s\n", strings.Join(parts, ", "))
		}

		files, err := q.ListPackageFiles(pkg.Name, "")
		if err != nil {
			return "", err
		}
		if len(files) > 0 {
			fmt.Fprintf(&b, "- **Files:** %d\n", len(files))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func promptOnboard(q *store.Querier, _ map[string]string) (string, error) {
	status, err := q.IndexStatus()
	if err != nil {
		return "", err
	}
	allPackages, err := q.ListPackages("")
	if err != nil {
		return "", err
	}
	extDist, err := q.ExtensionDistribution()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Repository Overview\n\n")

	b.WriteString("## Index Status\n\n")
	if status.IndexedAt != "" {
		fmt.Fprintf(&b, "- **Indexed at:** %s\n", status.IndexedAt)
	}
	if status.GitCommit != "" {
		fmt.Fprintf(&b, "- **Git commit:** %s\n", status.GitCommit)
	}
	fmt.Fprintf(&b, "- **Packages:** %d\n", status.PackageCount)
	fmt.Fprintf(&b, "- **Symbols:** %d\n", status.SymbolCount)
	fmt.Fprintf(&b, "- **Files:** %d\n", status.FileCount)
	fmt.Fprintf(&b, "- **Build duration:** %dms\n", status.TotalDurationMs)
	b.WriteString("\n")

	byKind := map[string][]model.Package{}
	for _, pkg := range allPackages {
		byKind[pkg.Kind] = append(byKind[pkg.Kind], pkg)
	}
	var kinds []string
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	b.WriteString("## Packages by ecosystem\n\n")
	if len(kinds) == 0 {
		b.WriteString("No packages indexed.\n\n")
	} else {
		for _, kind := range kinds {
			pkgs := byKind[kind]
			fmt.Fprintf(&b, "### %s (%d)\n\n", kind, len(pkgs))
			for _, pkg := range pkgs {
				if pkg.Description == "" {
					fmt.Fprintf(&b, "- **%s** — `%s`\n", pkg.Name, pkg.Path)
				} else {
					fmt.Fprintf(&b, "- **%s** — `%s` — %s\n", pkg.Name, pkg.Path, pkg.Description)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(extDist) > 0 {
		b.WriteString("## File types\n\n")
		b.WriteString("| Extension | Count |\n|---|---|\n")
		for _, e := range extDist {
			fmt.Fprintf(&b, "| .%s | %d |\n", e.Extension, e.Count)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func promptImpactAnalysis(q *store.Querier, args map[string]string) (string, error) {
	name, err := requireArg(args, "name")
	if err != nil {
		return "", err
	}
	pkg, err := q.GetPackage(name)
	if err != nil {
		return "", err
	}
	if pkg == nil {
		return "", fmt.Errorf("package '%s' not found", name)
	}

	directDependents, err := q.PackageDependents(name)
	if err != nil {
		return "", err
	}
	reverseEdges, err := q.ReverseDependencyGraph(name, 10)
	if err != nil {
		return "", err
	}

	allAffected := map[string]struct{}{}
	for _, e := range reverseEdges {
		allAffected[e.To] = struct{}{}
	}
	directNames := map[string]struct{}{}
	for _, d := range directDependents {
		directNames[d.Package] = struct{}{}
	}
	var transitiveOnly []string
	for n := range allAffected {
		if _, ok := directNames[n]; !ok {
			transitiveOnly = append(transitiveOnly, n)
		}
	}
	sort.Strings(transitiveOnly)

	var b strings.Builder
	fmt.Fprintf(&b, "# Impact analysis: %s\n\n", pkg.Name)
	fmt.Fprintf(&b, "- **Path:** `%s`\n", pkg.Path)
	fmt.Fprintf(&b, "- **Kind:** %s\n", pkg.Kind)
	if pkg.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", pkg.Description)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Direct dependents (%d)\n\n", len(directDependents))
	if len(directDependents) == 0 {
		b.WriteString("No packages directly depend on this.\n\n")
	} else {
		for _, d := range directDependents {
			external := ""
			if !d.IsInternal {
				external = " (external)"
			}
			fmt.Fprintf(&b, "- **%s** (%s)%s\n", d.Package, d.DepKind, external)
		}
		b.WriteString("\n")
	}

	if len(transitiveOnly) > 0 {
		fmt.Fprintf(&b, "## Transitive dependents (%d)\n\n", len(transitiveOnly))
		b.WriteString("These packages don't depend directly but are affected through the dependency chain:\n\n")
		for _, n := range transitiveOnly {
			fmt.Fprintf(&b, "- **%s**\n", n)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Blast radius\n\n")
	fmt.Fprintf(&b, "- **Direct:** %d\n", len(directDependents))
	fmt.Fprintf(&b, "- **Transitive:** %d\n", len(transitiveOnly))
	fmt.Fprintf(&b, "- **Total affected:** %d\n", len(allAffected))

	if len(reverseEdges) > 0 {
		b.WriteString("\n## Dependency chain\n\n")
		for _, e := range reverseEdges {
			fmt.Fprintf(&b, "- %s → %s\n", e.From, e.To)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func promptUnderstandDependency(q *store.Querier, args map[string]string) (string, error) {
	from, err := requireArg(args, "from")
	if err != nil {
		return "", err
	}
	to, err := requireArg(args, "to")
	if err != nil {
		return "", err
	}

	fromPkg, err := q.GetPackage(from)
	if err != nil {
		return "", err
	}
	if fromPkg == nil {
		return "", fmt.Errorf("package '%s' not found", from)
	}
	toPkg, err := q.GetPackage(to)
	if err != nil {
		return "", err
	}
	if toPkg == nil {
		return "", fmt.Errorf("package '%s' not found", to)
	}

	allEdges, err := q.DependencyGraph(from, 10, false)
	if err != nil {
		return "", err
	}

	reachesTarget := map[string]struct{}{to: {}}
	for {
		before := len(reachesTarget)
		for _, e := range allEdges {
			if _, ok := reachesTarget[e.To]; ok {
				reachesTarget[e.From] = struct{}{}
			}
		}
		if len(reachesTarget) == before {
			break
		}
	}

	var relevantEdges []store.DependencyEdge
	for _, e := range allEdges {
		_, fromOK := reachesTarget[e.From]
		_, toOK := reachesTarget[e.To]
		if fromOK && toOK {
			relevantEdges = append(relevantEdges, e)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Dependency path: %s → %s\n\n", from, to)

	b.WriteString("## Source package\n\n")
	fmt.Fprintf(&b, "- **%s** (%s) — `%s`\n", fromPkg.Name, fromPkg.Kind, fromPkg.Path)
	if fromPkg.Description != "" {
		fmt.Fprintf(&b, "- %s\n", fromPkg.Description)
	}
	b.WriteString("\n")

	b.WriteString("## Target package\n\n")
	fmt.Fprintf(&b, "- **%s** (%s) — `%s`\n", toPkg.Name, toPkg.Kind, toPkg.Path)
	if toPkg.Description != "" {
		fmt.Fprintf(&b, "- %s\n", toPkg.Description)
	}
	b.WriteString("\n")

	if len(relevantEdges) == 0 {
		b.WriteString("## No dependency path found\n\n")
		fmt.Fprintf(&b, "%s does not depend on %s (directly or transitively).\n", from, to)
		return b.String(), nil
	}

	fmt.Fprintf(&b, "## Dependency edges (%d)\n\n", len(relevantEdges))
	for _, e := range relevantEdges {
		fmt.Fprintf(&b, "- %s → %s\n", e.From, e.To)
	}
	b.WriteString("\n")

	var intermediates []string
	for n := range reachesTarget {
		if n != from && n != to {
			intermediates = append(intermediates, n)
		}
	}
	sort.Strings(intermediates)
	if len(intermediates) > 0 {
		fmt.Fprintf(&b, "## Intermediate packages (%d)\n\n", len(intermediates))
		for _, n := range intermediates {
			pkg, err := q.GetPackage(n)
			if err == nil && pkg != nil {
				if pkg.Description != "" {
					fmt.Fprintf(&b, "- **%s** (%s) — `%s` — %s\n", pkg.Name, pkg.Kind, pkg.Path, pkg.Description)
				} else {
					fmt.Fprintf(&b, "- **%s** (%s) — `%s`\n", pkg.Name, pkg.Kind, pkg.Path)
				}
			} else {
				fmt.Fprintf(&b, "- **%s**\n", n)
			}
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

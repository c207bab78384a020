// Package walker implements the single directory-traversal routine shared
// by repo-wide discovery and package-scoped source hashing / symbol
// extraction.
package walker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExclude is the default set of directory basenames the walker
// refuses to descend into.
var DefaultExclude = []string{
	"node_modules", "vendor", "dist", ".build", "target",
	"third_party", ".shire", ".gradle", "build",
}

// skipSuffixes are generated-file suffixes excluded regardless of extension match.
var skipSuffixes = []string{".pb.go", ".d.ts", ".generated.ts", ".generated.js", "_test.go"}

// skipFiles are exact generated filenames excluded regardless of extension match.
var skipFiles = map[string]struct{}{
	"build.rs": {},
}

// ExtensionsForKind returns the source extensions (no leading dot) eligible
// for hashing and symbol extraction within a package of the given
// ecosystem kind.
func ExtensionsForKind(kind string) []string {
	switch kind {
	case "npm":
		return []string{"ts", "tsx", "js", "jsx"}
	case "go":
		return []string{"go"}
	case "cargo":
		return []string{"rs"}
	case "python":
		return []string{"py"}
	case "maven", "gradle":
		return []string{"java", "kt"}
	default:
		return nil
	}
}

// NewExcludeSet builds a lookup set from a list of directory basenames.
func NewExcludeSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Walk descends from root, skipping hidden directories (any name beginning
// with "." other than root itself) and directories named in exclude, and
// returns every file whose lowercased extension (without the dot) is in
// extensions, sorted lexicographically by path. A nil or empty extensions
// list matches no files. Symlinks are never followed.
func Walk(root string, extensions []string, exclude map[string]struct{}) ([]string, error) {
	if exclude == nil {
		exclude = NewExcludeSet(DefaultExclude)
	}
	extSet := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	if len(extSet) == 0 {
		return nil, nil
	}

	var results []string
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)

			if entry.IsDir() {
				if strings.HasPrefix(name, ".") {
					continue
				}
				if _, excluded := exclude[name]; excluded {
					continue
				}
				if entry.Type()&os.ModeSymlink != 0 {
					continue
				}
				if err := walk(full, depth+1); err != nil {
					return err
				}
				continue
			}

			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}
			if isGenerated(name) {
				continue
			}
			if _, skip := skipFiles[name]; skip {
				continue
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
			if _, ok := extSet[ext]; ok {
				results = append(results, full)
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

func isGenerated(name string) bool {
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

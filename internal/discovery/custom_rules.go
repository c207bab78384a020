package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shire/internal/config"
	"shire/internal/model"
)

// applyCustomRules evaluates each configured rule against the repo tree in
// declaration order, skipping directories already owned by a
// manifest-discovered package or by a match of an earlier rule. Within one
// rule, a match nested under another match of that rule is dropped.
func applyCustomRules(root string, rules []config.CustomDiscoveryRule, globalExclude map[string]struct{}, owned map[string]struct{}) []model.ManifestRecord {
	var out []model.ManifestRecord

	for _, rule := range rules {
		ruleExclude := map[string]struct{}{}
		for k := range globalExclude {
			ruleExclude[k] = struct{}{}
		}
		for _, e := range rule.Exclude {
			ruleExclude[e] = struct{}{}
		}

		matches := findRuleMatches(root, rule, ruleExclude, owned)
		matches = suppressNestedMatches(matches)

		for _, relDir := range matches {
			owned[relDir] = struct{}{}
			name := rule.NamePrefix + relDir
			if relDir == "" {
				name = rule.Name
			}
			out = append(out, model.ManifestRecord{
				Name: name,
				Path: relDir,
				Kind: rule.Kind,
			})
		}
	}
	return out
}

// findRuleMatches walks the directories rule.Paths scopes to (or the whole
// repo if unset), applying max_depth and the glob-requires test to each.
func findRuleMatches(root string, rule config.CustomDiscoveryRule, exclude map[string]struct{}, owned map[string]struct{}) []string {
	roots := rule.Paths
	if len(roots) == 0 {
		roots = []string{""}
	}

	var matches []string
	seen := map[string]struct{}{}

	for _, scopedRoot := range roots {
		base := filepath.Join(root, filepath.FromSlash(scopedRoot))
		baseDepth := strings.Count(strings.Trim(filepath.ToSlash(scopedRoot), "/"), "/")
		if scopedRoot == "" {
			baseDepth = 0
		}

		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if rel == "." {
				rel = ""
			}

			name := d.Name()
			if rel != "" {
				if _, skip := exclude[name]; skip {
					return filepath.SkipDir
				}
				if strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
			}

			if rule.HasMaxDepth() {
				depth := 0
				if rel != "" {
					depth = strings.Count(rel, "/") + 1
				}
				if depth-baseDepth > rule.MaxDepth {
					return filepath.SkipDir
				}
			}

			if _, isOwned := owned[rel]; isOwned {
				return nil
			}

			if directoryMatchesRequires(path, rule.Requires) {
				if _, dup := seen[rel]; !dup {
					seen[rel] = struct{}{}
					matches = append(matches, rel)
				}
			}
			return nil
		})
	}

	sort.Strings(matches)
	return matches
}

// directoryMatchesRequires reports whether every glob in requires has at
// least one basename match among path's direct children.
func directoryMatchesRequires(path string, requires []string) bool {
	if len(requires) == 0 {
		return false
	}
	entries, err := readDirNames(path)
	if err != nil {
		return false
	}
	for _, glob := range requires {
		matched := false
		for _, name := range entries {
			if ok, _ := filepath.Match(glob, name); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func readDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// suppressNestedMatches drops any match that is a strict descendant of an
// earlier match in the (already sorted) list: outer wins.
func suppressNestedMatches(matches []string) []string {
	var out []string
	for _, m := range matches {
		nested := false
		for _, kept := range out {
			if kept == "" || strings.HasPrefix(m, kept+"/") {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, m)
		}
	}
	return out
}

// Package discovery walks a repository once to find every manifest-owned
// and custom-rule-owned package, producing the candidate list the build
// orchestrator will persist.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"shire/internal/config"
	"shire/internal/logging"
	"shire/internal/manifest"
	"shire/internal/model"
)

// Candidate is a discovered package before build-time augmentation
// (symbol/file indexing, config overrides).
type Candidate struct {
	Record model.ManifestRecord
}

// Discover walks root once, dispatches every recognized manifest filename
// to its parser (with Maven's two-pass parent resolution applied), dedups
// by path using the fixed ecosystem priority order, then layers in custom
// discovery rule matches.
func Discover(root string, cfg config.Config) ([]Candidate, error) {
	log := logging.Get(logging.CategoryDiscovery)
	exclude := toSet(cfg.Discovery.Exclude)
	enabledManifests := toSet(cfg.Discovery.Manifests)

	manifestFiles, goWorkDirs, err := walkForManifests(root, exclude, enabledManifests)
	if err != nil {
		return nil, err
	}

	records, err := parseManifests(root, manifestFiles, enabledManifests)
	if err != nil {
		return nil, err
	}

	records = dedupByPath(records)

	owned := map[string]struct{}{}
	for _, r := range records {
		owned[r.Path] = struct{}{}
	}
	for _, d := range goWorkDirs {
		owned[d] = struct{}{}
	}

	customRecords := applyCustomRules(root, cfg.Discovery.Custom, exclude, owned)
	records = append(records, customRecords...)

	log.Info("discovery complete", "packages", len(records))

	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, Candidate{Record: r})
	}
	return out, nil
}

type foundManifest struct {
	absPath string
	relDir  string
	kind    string
}

// walkForManifests performs the single repo-wide walk, collecting every
// file whose basename is a recognized (and enabled) manifest filename.
// go.work is handled specially: it names subdirectories to treat as
// already "owned" even though it produces no package of its own.
func walkForManifests(root string, exclude map[string]struct{}, enabled map[string]struct{}) ([]foundManifest, []string, error) {
	var found []foundManifest
	var goWorkDirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if _, skip := exclude[name]; skip {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		base := d.Name()
		if _, isEnabled := enabled[base]; !isEnabled {
			return nil
		}

		relDir := filepath.ToSlash(filepath.Dir(rel))
		if relDir == "." {
			relDir = ""
		}

		if base == "go.work" {
			dirs, err := manifest.ParseGoWork(path)
			if err == nil {
				for _, d := range dirs {
					goWorkDirs = append(goWorkDirs, filepath.ToSlash(filepath.Join(relDir, d)))
				}
			}
			return nil
		}
		if base == "settings.gradle" || base == "settings.gradle.kts" {
			// Produces no candidate. Its root project name and include list
			// are not read here and play no part in naming gradle packages.
			return nil
		}

		if manifest.ForFilename(base) == nil {
			return nil
		}

		found = append(found, foundManifest{absPath: path, relDir: relDir, kind: manifest.KindForFilename(base)})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return found, goWorkDirs, nil
}

// parseManifests dispatches every found manifest to its parser, running
// Maven's two-pass parent resolution across all discovered pom.xml files
// before resolving any non-aggregator POM.
func parseManifests(root string, found []foundManifest, enabled map[string]struct{}) ([]model.ManifestRecord, error) {
	log := logging.Get(logging.CategoryDiscovery)

	parents := map[string]manifest.ParentInfo{}
	pomDocs := map[string]*manifest.POMDocument{}
	for _, f := range found {
		if f.kind != "maven" {
			continue
		}
		doc, err := manifest.ParsePOM(f.absPath)
		if err != nil {
			log.Warn("failed to parse pom.xml", "path", f.absPath, "error", err)
			continue
		}
		pomDocs[f.absPath] = doc
		if manifest.IsAggregator(doc) && doc.GroupID != "" && doc.ArtifactID != "" {
			parents[doc.GroupID+":"+doc.ArtifactID] = manifest.ParentInfo{
				GroupID:              doc.GroupID,
				Version:              doc.Version,
				DependencyManagement: manifest.DependencyManagementMap(doc),
			}
		}
	}

	var records []model.ManifestRecord
	for _, f := range found {
		if f.kind == "maven" {
			doc, ok := pomDocs[f.absPath]
			if !ok {
				continue
			}
			if manifest.IsAggregator(doc) {
				continue
			}
			rec, err := manifest.ResolvePackage(doc, f.relDir, parents)
			if err != nil {
				log.Warn("failed to resolve maven package", "path", f.absPath, "error", err)
				continue
			}
			records = append(records, rec)
			continue
		}

		base := filepath.Base(f.absPath)
		parser := manifest.ForFilename(base)
		if parser == nil {
			continue
		}
		rec, err := parser.Parse(f.absPath, f.relDir)
		if err != nil {
			log.Warn("failed to parse manifest", "path", f.absPath, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// dedupByPath keeps one record per relative directory, breaking ties with
// manifest.EcosystemPriority.
func dedupByPath(records []model.ManifestRecord) []model.ManifestRecord {
	priority := map[string]int{}
	for i, eco := range manifest.EcosystemPriority {
		priority[eco] = i
	}

	byPath := map[string]model.ManifestRecord{}
	for _, r := range records {
		existing, ok := byPath[r.Path]
		if !ok {
			byPath[r.Path] = r
			continue
		}
		if priority[r.Kind] < priority[existing.Kind] {
			byPath[r.Path] = r
		}
	}

	out := make([]model.ManifestRecord, 0, len(byPath))
	for _, r := range byPath {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

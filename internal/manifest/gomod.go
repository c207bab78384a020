package manifest

import (
	"bufio"
	"os"
	"strings"

	"shire/internal/model"
)

type goModParser struct{}

func (goModParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}
	defer f.Close()

	rec := model.ManifestRecord{Path: relDir, Kind: "go"}

	inRequireBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := stripGoComment(scanner.Text())
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case inRequireBlock:
			if trimmed == ")" {
				inRequireBlock = false
				continue
			}
			if name, version, ok := parseRequireFields(trimmed); ok {
				rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
					Name:       name,
					VersionReq: version,
					DepKind:    model.DepRuntime,
				})
			}

		case strings.HasPrefix(trimmed, "module "):
			modulePath := strings.TrimSpace(strings.TrimPrefix(trimmed, "module "))
			rec.Name = lastPathSegment(modulePath)
			if rec.Description == "" {
				rec.Description = modulePath
			}

		case strings.HasPrefix(trimmed, "go "):
			rec.Version = strings.TrimSpace(strings.TrimPrefix(trimmed, "go "))

		case strings.HasPrefix(trimmed, "require ("):
			inRequireBlock = true

		case strings.HasPrefix(trimmed, "require "):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "require "))
			if name, version, ok := parseRequireFields(rest); ok {
				rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
					Name:       name,
					VersionReq: version,
					DepKind:    model.DepRuntime,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return model.ManifestRecord{}, err
	}

	if rec.Name == "" {
		rec.Name = nameFromDir(relDir)
	}
	return rec, nil
}

// stripGoComment removes a trailing "// ..." comment, if any.
func stripGoComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

// parseRequireFields splits "module/path v1.2.3" into its name and version.
func parseRequireFields(s string) (name, version string, ok bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// lastPathSegment returns the final "/"-delimited segment of a Go module path.
func lastPathSegment(modulePath string) string {
	parts := strings.Split(modulePath, "/")
	return parts[len(parts)-1]
}

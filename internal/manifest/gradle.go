package manifest

import (
	"os"
	"regexp"
	"strings"

	"shire/internal/model"
)

type gradleParser struct{}

var (
	gradleGroupRe   = regexp.MustCompile(`(?m)^\s*group\s*[:=]\s*['"]([^'"]+)['"]`)
	gradleVersionRe = regexp.MustCompile(`(?m)^\s*version\s*[:=]\s*['"]([^'"]+)['"]`)

	gradleConfigs = []string{
		"implementation", "api", "runtimeOnly", "testImplementation",
		"testRuntimeOnly", "compileOnly", "testCompileOnly",
	}

	// gradleStringDepRe matches `implementation 'group:artifact:version'`
	// style declarations for any recognized configuration.
	gradleStringDepRe = regexp.MustCompile(`(?m)^\s*(` + strings.Join(gradleConfigs, "|") + `)\s*[( ]\s*['"]([^'":]+):([^'":]+):([^'"]+)['"]`)

	// gradleProjectDepRe matches `implementation project(':path')` style
	// internal project references, which carry no version.
	gradleProjectDepRe = regexp.MustCompile(`(?m)^\s*(` + strings.Join(gradleConfigs, "|") + `)\s*[( ]\s*project\(\s*['"]([^'"]+)['"]\s*\)`)
)

// SettingsGradle is the root project name and module include list extracted
// from a settings.gradle(.kts) sibling of build.gradle.
type SettingsGradle struct {
	RootProjectName string
	IncludedPaths   []string // "a/b" form, converted from ":a:b"
}

var (
	rootProjectNameRe = regexp.MustCompile(`(?m)rootProject\.name\s*=\s*['"]([^'"]+)['"]`)
	includeRe         = regexp.MustCompile(`(?m)include\s*\(?\s*['"]([^'"]+)['"]`)
)

// ParseSettingsGradle extracts rootProject.name and every include(...)
// path from a settings.gradle or settings.gradle.kts file.
func ParseSettingsGradle(absPath string) (SettingsGradle, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return SettingsGradle{}, err
	}
	content := string(data)

	var settings SettingsGradle
	if m := rootProjectNameRe.FindStringSubmatch(content); m != nil {
		settings.RootProjectName = m[1]
	}
	for _, m := range includeRe.FindAllStringSubmatch(content, -1) {
		path := strings.TrimPrefix(m[1], ":")
		settings.IncludedPaths = append(settings.IncludedPaths, strings.ReplaceAll(path, ":", "/"))
	}
	return settings, nil
}

func gradleConfigKind(config string) model.DepKind {
	switch config {
	case "testImplementation", "testRuntimeOnly":
		return model.DepDev
	case "compileOnly", "testCompileOnly":
		return model.DepPeer
	default:
		return model.DepRuntime
	}
}

func (gradleParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}
	content := string(data)

	rec := model.ManifestRecord{Path: relDir, Kind: "gradle"}

	var group string
	if m := gradleGroupRe.FindStringSubmatch(content); m != nil {
		group = m[1]
	}
	if m := gradleVersionRe.FindStringSubmatch(content); m != nil {
		rec.Version = m[1]
	}

	leaf := relDir
	if idx := strings.LastIndex(relDir, "/"); idx >= 0 {
		leaf = relDir[idx+1:]
	}
	if group != "" {
		rec.Name = group + ":" + leaf
	} else {
		rec.Name = nameFromDir(relDir)
	}

	for _, m := range gradleStringDepRe.FindAllStringSubmatch(content, -1) {
		config, g, a, v := m[1], m[2], m[3], m[4]
		rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
			Name:       g + ":" + a,
			VersionReq: v,
			DepKind:    gradleConfigKind(config),
		})
	}
	for _, m := range gradleProjectDepRe.FindAllStringSubmatch(content, -1) {
		config, projPath := m[1], m[2]
		depName := strings.ReplaceAll(strings.TrimPrefix(projPath, ":"), ":", "-")
		rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
			Name:    depName,
			DepKind: gradleConfigKind(config),
		})
	}

	return rec, nil
}

package manifest

import (
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"shire/internal/model"
)

type pythonParser struct{}

type pyprojectManifest struct {
	Project struct {
		Name                   string              `toml:"name"`
		Version                string              `toml:"version"`
		Description            string              `toml:"description"`
		Dependencies           []string            `toml:"dependencies"`
		OptionalDependencies   map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// pep508Name peels the leading identifier (word chars, hyphen, underscore,
// dot) off a PEP-508 requirement string.
var pep508Name = regexp.MustCompile(`^[A-Za-z0-9_.\-]+`)

func (pythonParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	var manifest pyprojectManifest
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return model.ManifestRecord{}, err
	}

	rec := model.ManifestRecord{
		Name:        manifest.Project.Name,
		Path:        relDir,
		Kind:        "python",
		Version:     manifest.Project.Version,
		Description: manifest.Project.Description,
	}
	if rec.Name == "" {
		rec.Name = nameFromDir(relDir)
	}

	for _, spec := range manifest.Project.Dependencies {
		if dep, ok := parsePEP508(spec); ok {
			dep.DepKind = model.DepRuntime
			rec.Dependencies = append(rec.Dependencies, dep)
		}
	}
	for _, group := range manifest.Project.OptionalDependencies {
		for _, spec := range group {
			if dep, ok := parsePEP508(spec); ok {
				dep.DepKind = model.DepDev
				rec.Dependencies = append(rec.Dependencies, dep)
			}
		}
	}

	return rec, nil
}

// parsePEP508 peels the dependency name off a PEP-508 requirement string,
// stripping any "[extras]" marker and any "; environment marker" suffix.
// The remainder is the version requirement, verbatim.
func parsePEP508(spec string) (model.ManifestDependency, bool) {
	spec = strings.TrimSpace(spec)
	name := pep508Name.FindString(spec)
	if name == "" {
		return model.ManifestDependency{}, false
	}
	rest := spec[len(name):]

	if idx := strings.Index(rest, ";"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "["); idx >= 0 {
		if end := strings.Index(rest, "]"); end > idx {
			rest = rest[:idx] + rest[end+1:]
		}
	}

	return model.ManifestDependency{
		Name:       name,
		VersionReq: strings.TrimSpace(rest),
	}, true
}

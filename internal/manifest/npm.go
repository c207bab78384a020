package manifest

import (
	"encoding/json"
	"os"
	"strings"

	"shire/internal/model"
)

type npmParser struct{}

type npmPackageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Description          string            `json:"description"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies      map[string]string `json:"peerDependencies"`
}

func (npmParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	var pkg npmPackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return model.ManifestRecord{}, err
	}

	name := pkg.Name
	if name == "" {
		name = nameFromDir(relDir)
	}

	rec := model.ManifestRecord{
		Name:        name,
		Path:        relDir,
		Kind:        "npm",
		Version:     pkg.Version,
		Description: pkg.Description,
	}

	addDeps := func(deps map[string]string, kind model.DepKind) {
		for depName, version := range deps {
			versionReq := strings.TrimPrefix(version, "workspace:")
			rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
				Name:       depName,
				VersionReq: versionReq,
				DepKind:    kind,
			})
		}
	}
	addDeps(pkg.Dependencies, model.DepRuntime)
	addDeps(pkg.DevDependencies, model.DepDev)
	addDeps(pkg.PeerDependencies, model.DepPeer)

	return rec, nil
}

package manifest

import (
	"os"

	"github.com/BurntSushi/toml"

	"shire/internal/model"
)

type cargoParser struct{}

type cargoManifest struct {
	Package struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Description string `toml:"description"`
	} `toml:"package"`
	Dependencies      map[string]toml.Primitive `toml:"dependencies"`
	DevDependencies   map[string]toml.Primitive `toml:"dev-dependencies"`
	BuildDependencies map[string]toml.Primitive `toml:"build-dependencies"`
}

// cargoDepTable captures the version field of a table-form dependency
// entry (e.g. `serde = { version = "1", features = [...] }`).
type cargoDepTable struct {
	Version string `toml:"version"`
}

func (cargoParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	var manifest cargoManifest
	md, err := toml.Decode(string(data), &manifest)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	rec := model.ManifestRecord{
		Name:        manifest.Package.Name,
		Path:        relDir,
		Kind:        "cargo",
		Version:     manifest.Package.Version,
		Description: manifest.Package.Description,
	}
	if rec.Name == "" {
		rec.Name = nameFromDir(relDir)
	}

	addDeps := func(deps map[string]toml.Primitive, kind model.DepKind) {
		for name, prim := range deps {
			version := decodeCargoDepVersion(md, prim)
			rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
				Name:       name,
				VersionReq: version,
				DepKind:    kind,
			})
		}
	}
	addDeps(manifest.Dependencies, model.DepRuntime)
	addDeps(manifest.DevDependencies, model.DepDev)
	addDeps(manifest.BuildDependencies, model.DepBuild)

	return rec, nil
}

// decodeCargoDepVersion handles both string-form ("1.2.3") and table-form
// ({ version = "1.2.3" }) dependency declarations.
func decodeCargoDepVersion(md toml.MetaData, prim toml.Primitive) string {
	var asString string
	if err := md.PrimitiveDecode(prim, &asString); err == nil {
		return asString
	}
	var asTable cargoDepTable
	if err := md.PrimitiveDecode(prim, &asTable); err == nil {
		return asTable.Version
	}
	return ""
}

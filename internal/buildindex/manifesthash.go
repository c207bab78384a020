package buildindex

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"shire/internal/model"
)

// manifestContent is the deterministic, order-independent projection of a
// ManifestRecord hashed to detect whether a package's manifest changed
// between builds.
type manifestContent struct {
	Name         string                     `json:"name"`
	Path         string                     `json:"path"`
	Kind         string                     `json:"kind"`
	Version      string                     `json:"version"`
	Description  string                     `json:"description"`
	Metadata     string                     `json:"metadata"`
	Dependencies []model.ManifestDependency `json:"dependencies"`
}

// manifestHash hashes r's content deterministically: dependencies are
// sorted first so declaration order in the source manifest never causes a
// spurious "updated" classification.
func manifestHash(r model.ManifestRecord) string {
	deps := append([]model.ManifestDependency(nil), r.Dependencies...)
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].DepKind < deps[j].DepKind
	})

	content := manifestContent{
		Name: r.Name, Path: r.Path, Kind: r.Kind, Version: r.Version,
		Description: r.Description, Metadata: r.Metadata, Dependencies: deps,
	}
	b, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// storedMetadata wraps a package row's opaque metadata column: the
// manifest content hash used for change detection, plus whatever the
// manifest parser itself produced.
type storedMetadata struct {
	ManifestHash string `json:"manifest_hash"`
	Manifest     string `json:"manifest,omitempty"`
}

func encodeMetadata(manifestMetadata, hash string) string {
	b, err := json.Marshal(storedMetadata{ManifestHash: hash, Manifest: manifestMetadata})
	if err != nil {
		return ""
	}
	return string(b)
}

func extractManifestHash(metadata string) string {
	if metadata == "" {
		return ""
	}
	var sm storedMetadata
	if err := json.Unmarshal([]byte(metadata), &sm); err != nil {
		return ""
	}
	return sm.ManifestHash
}

func encodeParametersJSON(params []model.Parameter) string {
	if len(params) == 0 {
		return ""
	}
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}

package manifest

import (
	"encoding/xml"
	"os"

	"shire/internal/model"
)

// POMDocument is the subset of a pom.xml this package understands.
type POMDocument struct {
	XMLName              xml.Name       `xml:"project"`
	GroupID              string         `xml:"groupId"`
	ArtifactID            string        `xml:"artifactId"`
	Version              string         `xml:"version"`
	Packaging            string         `xml:"packaging"`
	Description          string         `xml:"description"`
	Modules              []string       `xml:"modules>module"`
	Parent               *pomParent     `xml:"parent"`
	DependencyManagement *pomDepManager `xml:"dependencyManagement"`
	Dependencies         []pomDependency `xml:"dependencies>dependency"`
}

type pomParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type pomDepManager struct {
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

// ParentInfo is what the Maven pre-pass records for each aggregator POM,
// keyed by "groupId:artifactId", for the second pass to inherit from.
type ParentInfo struct {
	GroupID              string
	Version              string
	DependencyManagement map[string]string // "groupId:artifactId" -> version
}

// ParsePOM reads and unmarshals a pom.xml.
func ParsePOM(absPath string) (*POMDocument, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	var doc POMDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// IsAggregator reports whether doc is a parent-context provider rather than
// an indexable package: packaging "pom" with a non-empty <modules> list.
func IsAggregator(doc *POMDocument) bool {
	return doc.Packaging == "pom" && len(doc.Modules) > 0
}

// DependencyManagementMap flattens a POM's own <dependencyManagement> block
// into a "groupId:artifactId" -> version lookup.
func DependencyManagementMap(doc *POMDocument) map[string]string {
	out := map[string]string{}
	if doc.DependencyManagement == nil {
		return out
	}
	for _, dep := range doc.DependencyManagement.Dependencies {
		out[dep.GroupID+":"+dep.ArtifactID] = dep.Version
	}
	return out
}

// ResolvePackage produces a package record for a non-aggregator POM,
// resolving groupId/version and dependency versions against an optional
// parent index built by the pre-pass (see Discovery's Maven parent
// resolution). parents may be nil for a POM with no <parent> declaration.
func ResolvePackage(doc *POMDocument, relDir string, parents map[string]ParentInfo) (model.ManifestRecord, error) {
	groupID := doc.GroupID
	version := doc.Version
	var inheritedManagement map[string]string

	if doc.Parent != nil {
		key := doc.Parent.GroupID + ":" + doc.Parent.ArtifactID
		if parent, ok := parents[key]; ok {
			if groupID == "" {
				groupID = parent.GroupID
			}
			if version == "" {
				version = parent.Version
			}
			inheritedManagement = parent.DependencyManagement
		}
		if groupID == "" {
			groupID = doc.Parent.GroupID
		}
		if version == "" {
			version = doc.Parent.Version
		}
	}

	name := doc.ArtifactID
	if groupID != "" {
		name = groupID + ":" + doc.ArtifactID
	}
	if name == "" {
		name = nameFromDir(relDir)
	}

	ownManagement := DependencyManagementMap(doc)
	effectiveManagement := map[string]string{}
	for k, v := range inheritedManagement {
		effectiveManagement[k] = v
	}
	for k, v := range ownManagement {
		effectiveManagement[k] = v // child wins
	}

	rec := model.ManifestRecord{
		Name:        name,
		Path:        relDir,
		Kind:        "maven",
		Version:     version,
		Description: doc.Description,
	}

	for _, dep := range doc.Dependencies {
		depVersion := dep.Version
		if depVersion == "" {
			depVersion = effectiveManagement[dep.GroupID+":"+dep.ArtifactID]
		}
		depName := dep.GroupID + ":" + dep.ArtifactID

		var kind model.DepKind
		switch dep.Scope {
		case "test":
			kind = model.DepDev
		case "provided":
			kind = model.DepPeer
		default:
			kind = model.DepRuntime
		}

		rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
			Name:       depName,
			VersionReq: depVersion,
			DepKind:    kind,
		})
	}

	return rec, nil
}

// mavenParser satisfies the generic Parser interface for registry
// completeness, but performs no parent resolution: Discovery calls
// ParsePOM/ResolvePackage directly so it can run the two-pass parent
// index first.
type mavenParser struct{}

func (mavenParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	doc, err := ParsePOM(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}
	if IsAggregator(doc) {
		return model.ManifestRecord{}, ErrAggregatorPOM
	}
	return ResolvePackage(doc, relDir, nil)
}

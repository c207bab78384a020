package manifest

import (
	"os"
	"regexp"
	"strings"

	"shire/internal/model"
)

type rubyParser struct{}

var (
	rubyGemRe       = regexp.MustCompile(`^gem\s+'([^']+)'(?:\s*,\s*'([^']*)')?`)
	rubyGroupTestRe = regexp.MustCompile(`^group\s+:(test|development)\s+do\b`)
)

// Parse implements Gemfile's "gem 'name', 'ver'" grammar. Top-level gems
// are runtime; gems nested inside "group :test do ... end" or
// "group :development do ... end" are dev. Block depth tracks nested
// do ... end pairs.
func (rubyParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	rec := model.ManifestRecord{Name: nameFromDir(relDir), Path: relDir, Kind: "ruby"}

	depth := 0
	inGroupBlock := false
	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if rubyGroupTestRe.MatchString(line) {
			inGroupBlock = true
			depth = 1
			continue
		}

		if inGroupBlock {
			if strings.Contains(line, " do") || strings.HasSuffix(line, "do") {
				depth++
			}
			if line == "end" || strings.HasSuffix(line, " end") {
				depth--
			}
			if depth <= 0 {
				inGroupBlock = false
				continue
			}
		}

		if m := rubyGemRe.FindStringSubmatch(line); m != nil {
			kind := model.DepRuntime
			if inGroupBlock {
				kind = model.DepDev
			}
			rec.Dependencies = append(rec.Dependencies, model.ManifestDependency{
				Name:       m[1],
				VersionReq: m[2],
				DepKind:    kind,
			})
		}
	}

	return rec, nil
}

package manifest

import (
	"os"
	"regexp"
	"strings"

	"shire/internal/model"
)

type perlParser struct{}

var (
	perlRequiresRe = regexp.MustCompile(`^requires\s+'([^']+)'(?:\s*,\s*'([^']*)')?\s*;`)
	perlOnTestRe   = regexp.MustCompile(`^on\s+'test'\s*=>\s*sub\s*\{`)
)

// Parse implements cpanfile's "requires 'Name'(, 'ver')?;" grammar.
// Top-level requires are runtime; requires nested inside an
// "on 'test' => sub { ... }" block are dev. Brace depth tracks the block.
func (perlParser) Parse(absPath, relDir string) (model.ManifestRecord, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return model.ManifestRecord{}, err
	}

	rec := model.ManifestRecord{Name: nameFromDir(relDir), Path: relDir, Kind: "perl"}

	depth := 0
	inTestBlock := false
	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if perlOnTestRe.MatchString(line) {
			inTestBlock = true
			depth = 1
			continue
		}

		if inTestBlock {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 {
				inTestBlock = false
				continue
			}
		}

		if m := perlRequiresRe.FindStringSubmatch(line); m != nil {
			kind := model.DepRuntime
			if inTestBlock {
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

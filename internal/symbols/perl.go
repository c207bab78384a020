package symbols

import (
	"bufio"
	"regexp"
	"strings"

	"shire/internal/model"
)

type perlExtractor struct{}

var (
	perlPackageRe = regexp.MustCompile(`^package\s+([\w:]+)\s*;`)
	perlSubRe     = regexp.MustCompile(`^sub\s+(\w+)`)
)

// Extract follows a flat line-regex grammar: "package Name" introduces a
// class; "sub name" before any package line is a top-level function,
// after one it is a method parented to that package. Names beginning with
// "_" are excluded.
func (perlExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	var out []model.Symbol
	var currentPackage string

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if m := perlPackageRe.FindStringSubmatch(text); m != nil {
			currentPackage = m[1]
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolClass, Signature: text,
				Visibility: model.VisibilityPublic,
			})
			continue
		}

		if m := perlSubRe.FindStringSubmatch(text); m != nil {
			name := m[1]
			if strings.HasPrefix(name, "_") {
				continue
			}
			kind := model.SymbolFunction
			parent := ""
			if currentPackage != "" {
				kind = model.SymbolMethod
				parent = currentPackage
			}
			out = append(out, model.Symbol{
				FilePath: path, Name: name, Line: line,
				Kind: kind, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: parent,
			})
		}
	}
	return out, nil
}

package symbols

import (
	"bufio"
	"regexp"
	"strings"

	"shire/internal/model"
)

type kotlinExtractor struct{}

var (
	kotlinClassRe = regexp.MustCompile(`^(?:(private|internal)\s+)?(?:(?:open|abstract|final|data|sealed)\s+)*(class|interface|object|enum class)\s+(\w+)`)
	kotlinFuncRe  = regexp.MustCompile(`^(?:(private|internal)\s+)?(?:(?:open|override|abstract|final|suspend|inline)\s+)*fun\s+(\w+)\s*\(`)
)

// Extract includes top-level and member declarations except those
// explicitly marked private or internal (Kotlin's default visibility,
// public, needs no modifier at all).
func (kotlinExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	var out []model.Symbol
	var currentClass string

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if m := kotlinClassRe.FindStringSubmatch(text); m != nil {
			if m[1] == "private" || m[1] == "internal" {
				continue
			}
			kind := model.SymbolClass
			switch m[2] {
			case "interface":
				kind = model.SymbolInterface
			case "object":
				kind = model.SymbolClass
			case "enum class":
				kind = model.SymbolEnum
			}
			currentClass = m[3]
			out = append(out, model.Symbol{
				FilePath: path, Name: m[3], Line: line,
				Kind: kind, Signature: text,
				Visibility: model.VisibilityPublic,
			})
			continue
		}

		if m := kotlinFuncRe.FindStringSubmatch(text); m != nil {
			if m[1] == "private" || m[1] == "internal" {
				continue
			}
			out = append(out, model.Symbol{
				FilePath: path, Name: m[2], Line: line,
				Kind: model.SymbolFunction, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: currentClass,
			})
		}
	}
	return out, nil
}

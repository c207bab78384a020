package symbols

import (
	"bufio"
	"regexp"
	"strings"

	"shire/internal/model"
)

type javaExtractor struct{}

var (
	javaClassRe = regexp.MustCompile(`^(?:public|protected)\s+(?:static\s+|final\s+|abstract\s+)*(class|interface|enum)\s+(\w+)`)
	javaFieldRe = regexp.MustCompile(`^(?:public|protected)\s+(?:static\s+final|final\s+static)\s+[\w<>\[\],\s]+?\s+(\w+)\s*=`)
	javaMethodRe = regexp.MustCompile(`^(?:public|protected)\s+(?:static\s+|final\s+|abstract\s+|synchronized\s+)*[\w<>\[\],.\s]+?\s+(\w+)\s*\(`)
)

// Extract recognizes declarations carrying an explicit public or protected
// modifier: classes, interfaces, enums, methods (parented to the enclosing
// class), and constant fields. Package-private and private declarations
// are ignored.
func (javaExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
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

		if m := javaClassRe.FindStringSubmatch(text); m != nil {
			kind := model.SymbolClass
			switch m[1] {
			case "interface":
				kind = model.SymbolInterface
			case "enum":
				kind = model.SymbolEnum
			}
			currentClass = m[2]
			out = append(out, model.Symbol{
				FilePath: path, Name: m[2], Line: line,
				Kind: kind, Signature: text,
				Visibility: model.VisibilityPublic,
			})
			continue
		}

		if m := javaFieldRe.FindStringSubmatch(text); m != nil {
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolConstant, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: currentClass,
			})
			continue
		}

		if m := javaMethodRe.FindStringSubmatch(text); m != nil {
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolMethod, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: currentClass,
			})
		}
	}
	return out, nil
}

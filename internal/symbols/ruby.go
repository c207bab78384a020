package symbols

import (
	"bufio"
	"regexp"
	"strings"

	"shire/internal/model"
)

type rubyExtractor struct{}

var (
	rubyClassRe    = regexp.MustCompile(`^class\s+(\w+)(?:\s*<\s*(\w+))?`)
	rubyModuleRe   = regexp.MustCompile(`^module\s+(\w+)`)
	rubySelfDefRe  = regexp.MustCompile(`^def\s+self\.(\w+)`)
	rubyDefRe      = regexp.MustCompile(`^def\s+(\w+)`)
)

type rubyContext struct {
	name string
	kind model.SymbolKind
}

// Extract walks line by line keeping a context stack: "class Name" and
// "module Name" push a context; "def self.name" is a class-level function
// parented to the enclosing context; plain "def name" inside a context is
// a method, or a top-level function outside any context. Every construct
// that opens a block ("class", "module", "def") increments a depth
// counter, and "end" decrements it; a context is only popped off the
// stack when "end" closes it at the exact depth it was pushed at, so a
// method's "end" does not also close its enclosing class or module.
func (rubyExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	var out []model.Symbol
	var stack []rubyContext
	var contextDepths []int
	depth := 0

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		switch {
		case rubyClassRe.MatchString(text):
			m := rubyClassRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolClass, Signature: text,
				Visibility: model.VisibilityPublic,
				ParentSymbol: topContext(stack),
			})
			depth++
			contextDepths = append(contextDepths, depth)
			stack = append(stack, rubyContext{name: m[1], kind: model.SymbolClass})

		case rubyModuleRe.MatchString(text):
			m := rubyModuleRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolClass, Signature: text,
				Visibility: model.VisibilityPublic,
				ParentSymbol: topContext(stack),
			})
			depth++
			contextDepths = append(contextDepths, depth)
			stack = append(stack, rubyContext{name: m[1], kind: model.SymbolClass})

		case rubySelfDefRe.MatchString(text):
			m := rubySelfDefRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolFunction, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: topContext(stack),
			})
			depth++

		case rubyDefRe.MatchString(text):
			m := rubyDefRe.FindStringSubmatch(text)
			kind := model.SymbolFunction
			parent := ""
			if len(stack) > 0 {
				kind = model.SymbolMethod
				parent = topContext(stack)
			}
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: kind, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: parent,
			})
			depth++

		case text == "end" || strings.HasPrefix(text, "end "):
			if depth > 0 {
				if len(contextDepths) > 0 && contextDepths[len(contextDepths)-1] == depth {
					stack = stack[:len(stack)-1]
					contextDepths = contextDepths[:len(contextDepths)-1]
				}
				depth--
			}
		}
	}
	return out, nil
}

func topContext(stack []rubyContext) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1].name
}

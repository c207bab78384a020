package symbols

import (
	"bufio"
	"regexp"
	"strings"

	"shire/internal/model"
)

type protoExtractor struct{}

var (
	protoMessageRe = regexp.MustCompile(`^message\s+(\w+)\s*\{`)
	protoEnumRe    = regexp.MustCompile(`^enum\s+(\w+)\s*\{`)
	protoServiceRe = regexp.MustCompile(`^service\s+(\w+)\s*\{`)
	protoOneofRe   = regexp.MustCompile(`^oneof\s+(\w+)\s*\{`)
	protoRPCRe     = regexp.MustCompile(`^rpc\s+(\w+)\s*\(\s*(stream\s+)?(\w+)\s*\)\s*returns\s*\(\s*(stream\s+)?(\w+)\s*\)`)
)

type protoFrame struct {
	name string
	kind model.SymbolKind
}

// Extract recognizes message, enum, service, rpc, and oneof blocks by
// brace-depth tracking rather than a full grammar, since messages nest
// arbitrarily and the parent relationship follows the enclosing block.
func (protoExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	var out []model.Symbol
	var stack []protoFrame

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}

		switch {
		case protoMessageRe.MatchString(text):
			m := protoMessageRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolStruct, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: topProtoFrame(stack),
			})
			stack = append(stack, protoFrame{name: m[1], kind: model.SymbolStruct})

		case protoEnumRe.MatchString(text):
			m := protoEnumRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolEnum, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: topProtoFrame(stack),
			})
			stack = append(stack, protoFrame{name: m[1], kind: model.SymbolEnum})

		case protoServiceRe.MatchString(text):
			m := protoServiceRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolInterface, Signature: text,
				Visibility: model.VisibilityPublic,
			})
			stack = append(stack, protoFrame{name: m[1], kind: model.SymbolInterface})

		case protoOneofRe.MatchString(text):
			m := protoOneofRe.FindStringSubmatch(text)
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind: model.SymbolType, Signature: text,
				Visibility: model.VisibilityPublic, ParentSymbol: topProtoFrame(stack),
			})
			stack = append(stack, protoFrame{name: m[1], kind: model.SymbolType})

		case protoRPCRe.MatchString(text):
			m := protoRPCRe.FindStringSubmatch(text)
			reqStream, req, respStream, resp := m[2], m[3], m[4], m[5]
			reqParam := req
			if reqStream != "" {
				reqParam = "stream " + req
			}
			returnType := resp
			if respStream != "" {
				returnType = "stream " + resp
			}
			out = append(out, model.Symbol{
				FilePath: path, Name: m[1], Line: line,
				Kind:       model.SymbolMethod,
				Signature:  text,
				Visibility: model.VisibilityPublic,
				ParentSymbol: topProtoFrame(stack),
				ReturnType:   returnType,
				Parameters:   []model.Parameter{{Name: "request", Type: reqParam}},
			})

		case text == "}":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return out, nil
}

func topProtoFrame(stack []protoFrame) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1].name
}

// Package symbols implements the per-language symbol extractors: one
// grammar-driven extractor per tree-sitter-supported language (Go,
// TypeScript, JavaScript, Python, Rust), and line-regex extractors for the
// remaining languages (Java, Kotlin, Perl, Ruby, Protobuf). Extractors are
// dispatched by file extension and share a common output shape
// (model.Symbol); a parse failure on one file never halts a caller's walk.
package symbols

import (
	"path/filepath"
	"strings"

	"shire/internal/logging"
	"shire/internal/model"
)

// Extractor produces symbol records from one file's source text.
type Extractor interface {
	Extract(path string, content []byte) ([]model.Symbol, error)
}

// Registry dispatches file extensions to extractors and honors a
// configured set of excluded extensions.
type Registry struct {
	ts                *TreeSitterExtractor
	excludeExtensions map[string]struct{}
}

// NewRegistry builds a Registry. excludeExtensions entries carry their
// leading dot (matching shire.toml's symbols.exclude_extensions).
func NewRegistry(excludeExtensions []string) *Registry {
	excl := make(map[string]struct{}, len(excludeExtensions))
	for _, e := range excludeExtensions {
		excl[strings.ToLower(e)] = struct{}{}
	}
	return &Registry{ts: NewTreeSitterExtractor(), excludeExtensions: excl}
}

// Close releases tree-sitter parser resources.
func (r *Registry) Close() {
	r.ts.Close()
}

// ExtractFile dispatches path to the extractor matching its extension. A
// file with no registered extractor, or an excluded extension, yields no
// symbols and no error.
func (r *Registry) ExtractFile(path string, content []byte) []model.Symbol {
	ext := strings.ToLower(filepath.Ext(path))
	if _, excluded := r.excludeExtensions[ext]; excluded {
		return nil
	}

	var extractor Extractor
	switch ext {
	case ".go":
		extractor = goExtractor{r.ts}
	case ".ts", ".tsx":
		extractor = typescriptExtractor{r.ts}
	case ".js", ".jsx":
		extractor = javascriptExtractor{r.ts}
	case ".py":
		extractor = pythonExtractor{r.ts}
	case ".rs":
		extractor = rustExtractor{r.ts}
	case ".java":
		extractor = javaExtractor{}
	case ".kt":
		extractor = kotlinExtractor{}
	case ".pl", ".pm":
		extractor = perlExtractor{}
	case ".rb":
		extractor = rubyExtractor{}
	case ".proto":
		extractor = protoExtractor{}
	default:
		return nil
	}

	symbols, err := extractor.Extract(path, content)
	if err != nil {
		logging.Get(logging.CategorySymbols).Warn("extraction failed", "path", path, "err", err.Error())
		return nil
	}
	return symbols
}

// isExported reports whether a Go-style identifier begins with an
// uppercase letter.
func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := rune(name[0])
	return r >= 'A' && r <= 'Z'
}

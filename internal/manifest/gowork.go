package manifest

import (
	"bufio"
	"os"
	"strings"
)

// ParseGoWork extracts the sub-directories named in a go.work file's
// use (...) block (or single-line "use ./dir" directives), so Discovery
// can recurse into them even if they lack a manifest at depth zero.
func ParseGoWork(absPath string) ([]string, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dirs []string
	inUseBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := stripGoComment(scanner.Text())
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case inUseBlock:
			if trimmed == ")" {
				inUseBlock = false
				continue
			}
			dirs = append(dirs, trimmed)

		case trimmed == "use (":
			inUseBlock = true

		case strings.HasPrefix(trimmed, "use "):
			dirs = append(dirs, strings.TrimSpace(strings.TrimPrefix(trimmed, "use ")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return dirs, nil
}

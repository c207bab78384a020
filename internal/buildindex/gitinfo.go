package buildindex

import (
	"os"
	"path/filepath"
	"strings"
)

// bestEffortGitCommit reads .git/HEAD and resolves it to a commit hash
// without shelling out to git, looking a symbolic ref up first as a loose
// ref file and then in packed-refs. Any failure (not a git repo, unreadable
// HEAD, ref found in neither place) yields "".
func bestEffortGitCommit(repoRoot string) string {
	headPath := filepath.Join(repoRoot, ".git", "HEAD")
	head, err := os.ReadFile(headPath)
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(head))

	if !strings.HasPrefix(content, "ref:") {
		return content // detached HEAD: already a commit hash
	}

	ref := strings.TrimSpace(strings.TrimPrefix(content, "ref:"))
	refPath := filepath.Join(repoRoot, ".git", filepath.FromSlash(ref))
	if commit, err := os.ReadFile(refPath); err == nil {
		return strings.TrimSpace(string(commit))
	}

	packed, err := os.ReadFile(filepath.Join(repoRoot, ".git", "packed-refs"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(packed), "\n") {
		if strings.HasSuffix(line, " "+ref) {
			fields := strings.Fields(line)
			if len(fields) == 2 {
				return fields[0]
			}
		}
	}
	return ""
}

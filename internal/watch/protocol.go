// Package watch runs a background daemon that coalesces file-change
// signals and triggers incremental rebuilds, plus a one-shot decoder for
// Claude Code PostToolUse hook input on stdin.
package watch

import (
	"encoding/json"
	"io"
	"strings"
)

// RebuildMessage is sent over the Unix domain socket to signal a rebuild.
// An empty Files list is an unconditional signal (a manual `shire rebuild`
// with no --file flags): it always triggers a rebuild, skipping the
// relevance filter.
type RebuildMessage struct {
	Files []string `json:"files"`
}

// HookInput is the Claude Code PostToolUse hook JSON read from stdin by
// `shire rebuild --stdin`.
type HookInput struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
	Cwd       string    `json:"cwd"`
}

// ToolInput is the tool-specific payload of a hook event.
type ToolInput struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Command      string `json:"command"`
}

// HookInputFromReader parses hook JSON from r. Returns false if parsing
// fails; the caller then sends the rebuild anyway with the file list it
// already had (the --file flags, usually none).
func HookInputFromReader(r io.Reader) (HookInput, bool) {
	var h HookInput
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return HookInput{}, false
	}
	return h, true
}

// readonlyCommands lists Bash commands known not to touch source files. If
// every segment of a piped/chained command starts with one of these, the
// hook event is skipped. Unknown commands default to triggering a rebuild.
var readonlyCommands = []string{
	"cat", "head", "tail", "less", "more",
	"ls", "dir", "find", "fd", "tree",
	"grep", "rg", "ag", "ack",
	"wc", "diff", "cmp", "file", "stat",
	"echo", "printf", "true", "false",
	"pwd", "which", "whereis", "whence", "type", "command",
	"env", "printenv", "set",
	"ps", "top", "htop", "uptime", "df", "du", "free",
	"date", "cal",
	"man", "help", "info",
	"git status", "git log", "git diff", "git show", "git branch",
	"git remote", "git tag", "git stash list", "git rev-parse",
	"cargo test", "cargo check", "cargo clippy", "cargo bench", "cargo doc",
	"cargo build",
	"go test", "go vet", "go build",
	"npm test", "npm run test", "npm run lint", "npm run build",
	"npx", "yarn test", "pnpm test",
	"python -c", "python -m pytest", "pytest", "node -e",
	"make check", "make test",
	"jq", "yq", "xargs",
	"curl", "wget", "http",
	"docker ps", "docker images", "docker logs",
	"kubectl get", "kubectl describe", "kubectl logs",
	"gh pr view", "gh issue view", "gh api", "gh run view",
}

// ShouldRebuild reports whether this hook event should trigger a rebuild.
// Non-Bash tools (Edit, Write, NotebookEdit) always trigger. For Bash,
// every segment of a piped ("|"), chained (";" or "&&") command must match
// a known read-only prefix for the event to be skipped.
func (h HookInput) ShouldRebuild() bool {
	if h.ToolName != "Bash" {
		return true
	}
	if h.ToolInput.Command == "" {
		return true
	}

	for _, segment := range splitCommandSegments(h.ToolInput.Command) {
		if segment == "" {
			continue
		}
		if !matchesReadonlyPrefix(segment) {
			return true
		}
	}
	return false
}

func splitCommandSegments(cmd string) []string {
	var segments []string
	for _, part := range strings.FieldsFunc(cmd, func(r rune) bool { return r == '|' || r == ';' }) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "(")
		for _, s := range strings.Split(part, "&&") {
			s = strings.TrimSpace(s)
			if s != "" {
				segments = append(segments, s)
			}
		}
	}
	return segments
}

func matchesReadonlyPrefix(segment string) bool {
	for _, ro := range readonlyCommands {
		if strings.HasPrefix(segment, ro) {
			return true
		}
	}
	return false
}

// ChangedPath returns the single file this hook event touched, preferring
// file_path over notebook_path. Empty for tool types that carry neither
// (e.g. Bash).
func (h HookInput) ChangedPath() string {
	if h.ToolInput.FilePath != "" {
		return h.ToolInput.FilePath
	}
	return h.ToolInput.NotebookPath
}

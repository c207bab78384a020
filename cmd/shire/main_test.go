package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shire/internal/watch"
)

func writeRepo(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module widgets\n\ngo 1.24\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))
}

func TestRunBuildIndexesRepo(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root)

	buildRoot, buildForce, buildDB = root, false, ""
	defer func() { buildRoot, buildForce, buildDB = ".", false, "" }()

	require.NoError(t, runBuild(&cobra.Command{}, nil))

	_, err := os.Stat(filepath.Join(root, ".shire", "index.db"))
	assert.NoError(t, err)
}

func TestRunServeFailsWithoutIndex(t *testing.T) {
	root := t.TempDir()

	serveDB = filepath.Join(root, ".shire", "index.db")
	defer func() { serveDB = "" }()

	err := runServe(&cobra.Command{}, nil)
	assert.Error(t, err)
}

func TestRunRebuildStdinWithoutDaemonIsNoop(t *testing.T) {
	root := t.TempDir()

	sockDir := filepath.Join(root, ".shire")
	require.NoError(t, os.MkdirAll(sockDir, 0o755))

	payload, err := json.Marshal(watch.HookInput{
		ToolName:  "Edit",
		ToolInput: watch.ToolInput{FilePath: "main.go"},
		Cwd:       root,
	})
	require.NoError(t, err)

	stdin := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	os.Stdin = r
	defer func() { os.Stdin = stdin }()

	rebuildRoot, rebuildFiles, rebuildStdin = ".", nil, true
	defer func() { rebuildRoot, rebuildFiles, rebuildStdin = ".", nil, false }()

	// No daemon socket is listening, so SendRebuild should be a silent no-op.
	assert.NoError(t, runRebuild(&cobra.Command{}, nil))
}

func TestRootCommandHasAllSubcommands(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "serve", "watch", "rebuild"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

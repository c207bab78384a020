package watch

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shire/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Watch.DebounceMs = 50
	return cfg
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDaemonRunRebuildsOnSocketSignal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module widgets\n\ngo 1.24\n")
	writeFile(t, root, "main.go", "package main\n\nfunc Run() {}\n")

	cfg := testConfig()
	dbPath := filepath.Join(root, ".shire", "index.db")
	daemon := NewDaemon(root, cfg, dbPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	sock := sockPath(root)
	require.Eventually(t, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	require.NoError(t, writeJSONLine(conn, RebuildMessage{Files: []string{"main.go"}}))
	conn.Close()

	require.Eventually(t, func() bool {
		_, err := os.Stat(dbPath)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down after cancel")
	}
}

func TestDaemonSkipsRebuildForIrrelevantFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module widgets\n\ngo 1.24\n")

	cfg := testConfig()
	dbPath := filepath.Join(root, ".shire", "index.db")
	daemon := NewDaemon(root, cfg, dbPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	sock := sockPath(root)
	require.Eventually(t, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	require.NoError(t, writeJSONLine(conn, RebuildMessage{Files: []string{"README.md"}}))
	conn.Close()

	time.Sleep(200 * time.Millisecond)
	_, statErr := os.Stat(dbPath)
	assert.Error(t, statErr, "rebuild should have been skipped for an irrelevant file")

	cancel()
	<-done
}

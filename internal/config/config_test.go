package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingConfigReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultManifests(), cfg.Discovery.Manifests)
	assert.Equal(t, DefaultExclude(), cfg.Discovery.Exclude)
	assert.Equal(t, 2000, cfg.Watch.DebounceMs)
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()
	contents := `
db_path = "custom/index.db"

[discovery]
manifests = ["package.json", "go.mod"]
exclude = ["vendor"]

[watch]
debounce_ms = 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shire.toml"), []byte(contents), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom/index.db", cfg.DBPath)
	assert.Equal(t, []string{"package.json", "go.mod"}, cfg.Discovery.Manifests)
	assert.Equal(t, []string{"vendor"}, cfg.Discovery.Exclude)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)
}

func TestParseCustomDiscoveryRules(t *testing.T) {
	dir := t.TempDir()
	contents := `
[[discovery.custom]]
name = "proto-libs"
kind = "proto"
requires = ["*.proto"]
paths = ["proto"]
max_depth = 2
name_prefix = "proto:"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shire.toml"), []byte(contents), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Discovery.Custom, 1)
	rule := cfg.Discovery.Custom[0]
	assert.Equal(t, "proto-libs", rule.Name)
	assert.Equal(t, "proto", rule.Kind)
	assert.Equal(t, []string{"*.proto"}, rule.Requires)
	assert.True(t, rule.HasMaxDepth())
	assert.Equal(t, 2, rule.MaxDepth)
}

func TestNoCustomRulesDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shire.toml"), []byte("db_path = \"x.db\"\n"), 0o644))
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Discovery.Custom)
}

func TestDBPathOrDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", ".shire", "index.db"), cfg.DBPathOrDefault("/repo"))

	cfg.DBPath = "custom.db"
	assert.Equal(t, filepath.Join("/repo", "custom.db"), cfg.DBPathOrDefault("/repo"))

	cfg.DBPath = "/abs/path.db"
	assert.Equal(t, "/abs/path.db", cfg.DBPathOrDefault("/repo"))
}

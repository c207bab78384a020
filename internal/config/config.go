// Package config loads shire.toml, the repo-root configuration file that
// drives discovery, symbol extraction, watch debouncing, and logging. An
// absent file is equivalent to every default below.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// PackageOverride replaces a discovered package's description.
type PackageOverride struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// CustomDiscoveryRule matches directories by required file globs when no
// manifest parser recognizes them.
type CustomDiscoveryRule struct {
	Name       string   `toml:"name"`
	Kind       string   `toml:"kind"`
	Requires   []string `toml:"requires"`
	Paths      []string `toml:"paths"`
	Exclude    []string `toml:"exclude"`
	MaxDepth   int      `toml:"max_depth"`
	NamePrefix string   `toml:"name_prefix"`
}

// HasMaxDepth reports whether MaxDepth was set to a meaningful bound (TOML
// has no native Option type, so 0 doubles as "unset").
func (r CustomDiscoveryRule) HasMaxDepth() bool { return r.MaxDepth > 0 }

// DiscoveryConfig controls which manifest files are recognized and which
// directory names the walker refuses to descend into.
type DiscoveryConfig struct {
	Manifests []string              `toml:"manifests"`
	Exclude   []string              `toml:"exclude"`
	Custom    []CustomDiscoveryRule `toml:"custom"`
}

// SymbolsConfig gates which file extensions never reach a symbol extractor.
type SymbolsConfig struct {
	ExcludeExtensions []string `toml:"exclude_extensions"`
}

// WatchConfig controls the watcher's debounce window.
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// LoggingConfig mirrors internal/logging.Config in TOML-serializable form.
type LoggingConfig struct {
	DebugMode  bool            `toml:"debug_mode"`
	Level      string          `toml:"level"`
	Categories map[string]bool `toml:"categories"`
	JSONFormat bool            `toml:"json_format"`
}

// Config is the fully-resolved contents of shire.toml.
type Config struct {
	DBPath    string            `toml:"db_path"`
	Discovery DiscoveryConfig   `toml:"discovery"`
	Packages  []PackageOverride `toml:"packages"`
	Symbols   SymbolsConfig     `toml:"symbols"`
	Watch     WatchConfig       `toml:"watch"`
	Logging   LoggingConfig     `toml:"logging"`
}

// rawConfig mirrors Config's TOML shape without defaults applied, since
// BurntSushi/toml needs a plain struct to decode into before we backfill.
type rawConfig struct {
	DBPath    string              `toml:"db_path"`
	Discovery rawDiscoveryConfig  `toml:"discovery"`
	Packages  []PackageOverride   `toml:"packages"`
	Symbols   SymbolsConfig       `toml:"symbols"`
	Watch     WatchConfig         `toml:"watch"`
	Logging   LoggingConfig       `toml:"logging"`
}

type rawDiscoveryConfig struct {
	Manifests []string              `toml:"manifests"`
	Exclude   []string              `toml:"exclude"`
	Custom    []CustomDiscoveryRule `toml:"custom"`
}

// DefaultManifests is the ordered list of manifest filenames recognized out
// of the box.
func DefaultManifests() []string {
	return []string{
		"package.json", "go.mod", "go.work", "Cargo.toml", "pyproject.toml",
		"pom.xml", "build.gradle", "build.gradle.kts", "settings.gradle",
		"settings.gradle.kts", "cpanfile", "Gemfile",
	}
}

// DefaultExclude is the default set of directory basenames the discovery
// walk and source-tree walk both refuse to descend into.
func DefaultExclude() []string {
	return []string{
		"node_modules", "vendor", "dist", ".build", "target",
		"third_party", ".shire", ".gradle", "build",
	}
}

// Default returns the configuration used when shire.toml is absent.
func Default() Config {
	return Config{
		Discovery: DiscoveryConfig{
			Manifests: DefaultManifests(),
			Exclude:   DefaultExclude(),
		},
		Watch: WatchConfig{DebounceMs: 2000},
	}
}

// Load reads shire.toml from repoRoot, falling back to Default() if the
// file does not exist. Fields absent from the file fall back to their
// individual defaults rather than wholesale replacement.
func Load(repoRoot string) (Config, error) {
	path := filepath.Join(repoRoot, "shire.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, err
	}

	var raw rawConfig
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath: raw.DBPath,
		Discovery: DiscoveryConfig{
			Manifests: raw.Discovery.Manifests,
			Exclude:   raw.Discovery.Exclude,
			Custom:    raw.Discovery.Custom,
		},
		Packages: raw.Packages,
		Symbols:  raw.Symbols,
		Watch:    raw.Watch,
		Logging:  raw.Logging,
	}
	if len(cfg.Discovery.Manifests) == 0 {
		cfg.Discovery.Manifests = DefaultManifests()
	}
	if len(cfg.Discovery.Exclude) == 0 {
		cfg.Discovery.Exclude = DefaultExclude()
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 2000
	}
	return cfg, nil
}

// DBPathOrDefault resolves the catalog database path: the config override
// if set, else the conventional .shire/index.db beneath repoRoot.
func (c Config) DBPathOrDefault(repoRoot string) string {
	if c.DBPath != "" {
		if filepath.IsAbs(c.DBPath) {
			return c.DBPath
		}
		return filepath.Join(repoRoot, c.DBPath)
	}
	return filepath.Join(repoRoot, ".shire", "index.db")
}

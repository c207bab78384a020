package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shire/internal/buildindex"
	"shire/internal/config"
	"shire/internal/logging"
)

var (
	buildRoot  string
	buildForce bool
	buildDB    string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the repository and build the package index",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildRoot, "root", ".", "Root directory of the repository")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Force a full rebuild, ignoring cached manifest hashes")
	buildCmd.Flags().StringVar(&buildDB, "db", "", "Path to the index database (overrides shire.toml db_path)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(buildRoot)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(root, toLoggingConfig(cfg)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	dbPath := buildDB
	result, err := buildindex.Build(buildindex.Options{
		RepoRoot: root,
		Config:   cfg,
		DBPath:   dbPath,
		Force:    buildForce,
	})
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d packages, %d symbols, %d files in %dms\n",
		result.PackageCount, result.SymbolCount, result.FileCount, result.TotalDurationMs)
	return nil
}

func toLoggingConfig(cfg config.Config) logging.Config {
	return logging.Config{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.JSONFormat,
	}
}

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shire/internal/config"
	"shire/internal/logging"
	"shire/internal/watch"
)

var (
	watchRoot       string
	watchStop       bool
	watchForeground bool
	watchDB         string
)

var watchCmd = &cobra.Command{
	Use:    "watch",
	Short:  "Start the watch daemon for automatic index rebuilds",
	RunE:   runWatch,
	Hidden: false,
}

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "root", ".", "Root directory of the repository")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop the running daemon")
	watchCmd.Flags().BoolVar(&watchForeground, "foreground", false, "Run in foreground (used internally by the daemon)")
	_ = watchCmd.Flags().MarkHidden("foreground")
	watchCmd.Flags().StringVar(&watchDB, "db", "", "Path to the index database (overrides shire.toml db_path)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(watchRoot)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	if watchStop {
		return watch.StopDaemon(root)
	}

	if watchForeground {
		cfg, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logging.Init(root, toLoggingConfig(cfg)); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		daemon := watch.NewDaemon(root, cfg, watchDB)
		return daemon.Run(context.Background())
	}

	return watch.StartDaemon(root, watchDB)
}

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shire/internal/watch"
)

var (
	rebuildRoot  string
	rebuildFiles []string
	rebuildStdin bool
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Signal the watch daemon to rebuild the index",
	RunE:  runRebuild,
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildRoot, "root", ".", "Root directory of the repository")
	rebuildCmd.Flags().StringArrayVar(&rebuildFiles, "file", nil, "Specific file that changed (can be repeated)")
	rebuildCmd.Flags().BoolVar(&rebuildStdin, "stdin", false, "Read Claude Code hook JSON from stdin to extract the changed file")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := rebuildRoot
	files := append([]string(nil), rebuildFiles...)

	if rebuildStdin {
		hook, ok := watch.HookInputFromReader(os.Stdin)
		if ok {
			if !hook.ShouldRebuild() {
				return nil
			}
			if path := hook.ChangedPath(); path != "" {
				files = append(files, path)
			}
			if hook.Cwd != "" {
				root = hook.Cwd
			}
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return watch.SendRebuild(absRoot, files)
}

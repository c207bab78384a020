// Command shire scans a monorepo, builds a searchable package/symbol
// catalog, and serves it to AI coding assistants over the Model Context
// Protocol.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shire",
	Short: "Monorepo package index and MCP server",
}

func init() {
	rootCmd.AddCommand(buildCmd, serveCmd, watchCmd, rebuildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shire/internal/mcpserver"
	"shire/internal/store"
)

var serveDB string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path to the index database (defaults to .shire/index.db)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPath := serveDB
	if dbPath == "" {
		dbPath = ".shire/index.db"
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("index not found at %s. Run `shire build` first", dbPath)
	}

	db, err := store.OpenReadOnly(dbPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	srv := mcpserver.NewServer(store.NewQuerier(db))
	return srv.Serve(os.Stdin, os.Stdout)
}

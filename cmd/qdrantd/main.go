// Qdrantd is an MCP memory server backed by Qdrant.
//
// It exposes semantic memory tools (store, find, hybrid search, scroll,
// collection management) over the MCP stdio transport. Embeddings are
// generated locally via ONNX models, with server-side inference used for
// queries when the Qdrant deployment supports it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qdrantd",
	Short: "MCP memory server backed by Qdrant",
	Long: `qdrantd is an MCP server that stores and retrieves memories in Qdrant.

It speaks the MCP stdio transport: point an MCP client at the serve
command and use the qdrant_store / qdrant_find tools.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("qdrantd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

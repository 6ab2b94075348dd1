package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fernpost",
	Short: "Fernpost - a small publishing and subscription platform",
	Long: `Fernpost serves authored text posts with optional group tags and images,
threaded comments, and per-user subscription feeds.

Commands:
  serve        - Run the HTTP server
  migrate      - Apply database migrations (PostgreSQL backend)
  creategroup  - Create a group (groups have no HTTP creation route)`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (defaults to CONFIG_FILE or built-in defaults)")
}

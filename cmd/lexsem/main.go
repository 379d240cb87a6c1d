package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danharker/lexsem"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lexsem",
	Short: "Lexsem - deterministic semantic extraction for legal text",
	Long: `Lexsem analyzes legal document revisions into a clause-scoped logic
tree, extracts citation references and obligation atoms, assigns them
stable content-addressable identities, and projects an obligation graph
whose edges exist only where a literal textual trigger exists.

The pipeline is deterministic: the same document bytes always produce
the same identities, diffs, and graph payloads.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lexsem v0.3.1")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lexsem/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// newEngine builds an engine from the global flags.
func newEngine() (lexsem.Engine, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg := lexsem.DefaultConfig()
	if cfgFile != "" {
		var err error
		cfg, err = lexsem.LoadConfig(cfgFile)
		if err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return lexsem.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

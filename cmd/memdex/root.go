package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/internal/engine"
)

var (
	cfgFile string
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "memdex",
	Short: "Hybrid semantic and keyword search over a markdown knowledge base",
	Long: `Memdex indexes a directory of markdown documents into a local vector
store and a full-text index, then answers queries by fusing semantic
similarity with keyword relevance. Results are boosted by extracted
status, recency, and priority signals.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default <root>/memdex.yml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "knowledge base root (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEngine loads configuration, applies flag overrides, and brings the
// retrieval stack up.
func openEngine(logger *slog.Logger) (*engine.Engine, error) {
	path := cfgFile
	if path == "" {
		base := rootDir
		if base == "" {
			base = "."
		}
		path = filepath.Join(base, "memdex.yml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	return engine.Open(cfg, logger)
}

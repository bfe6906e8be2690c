package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dstone/memdex/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the knowledge base",
	Long: `Walks the knowledge base root, chunks new and changed documents,
embeds them, and updates both retrieval indexes. Incremental by default;
--full re-embeds everything.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Bool("full", false, "re-index every document, not just changed ones")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	mode := indexer.ModeIncremental
	if full, _ := cmd.Flags().GetBool("full"); full {
		mode = indexer.ModeFull
	}

	var bar *progressbar.ProgressBar
	onProgress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Indexing"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	res, err := eng.Reindex(cmd.Context(), mode, onProgress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d documents (%d chunks added, %d removed) in %s; %d skipped, %d removed, %d failed\n",
		res.Indexed, res.Chunks, res.ChunksRemoved, res.Duration.Round(timeRound), res.Skipped, res.Removed, res.Failed)
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", f.Path, f.Err)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "emit stats as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	stats, err := eng.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Documents: %d\n", stats.TotalDocuments)
	fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
	if stats.LastIndexedAt.IsZero() {
		fmt.Println("Last indexed: never")
	} else {
		fmt.Printf("Last indexed: %s\n", stats.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

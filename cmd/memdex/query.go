package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstone/memdex/internal/searcher"
)

const timeRound = time.Millisecond

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a hybrid search query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntP("top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().String("domain", "", "restrict to a configured domain")
	queryCmd.Flags().String("status", "", "restrict by status (completed, in_progress, pending, unknown)")
	queryCmd.Flags().Bool("current-only", false, "only temporally fresh results")
	queryCmd.Flags().Bool("urgent-only", false, "only results carrying urgency signals")
	queryCmd.Flags().Bool("no-cache", false, "bypass the query cache")
	queryCmd.Flags().Bool("json", false, "emit results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	topK, _ := cmd.Flags().GetInt("top-k")
	domain, _ := cmd.Flags().GetString("domain")
	status, _ := cmd.Flags().GetString("status")
	currentOnly, _ := cmd.Flags().GetBool("current-only")
	urgentOnly, _ := cmd.Flags().GetBool("urgent-only")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	asJSON, _ := cmd.Flags().GetBool("json")

	resp, err := eng.Search(cmd.Context(), searcher.Request{
		Query:       strings.Join(args, " "),
		TopK:        topK,
		Domain:      domain,
		Status:      status,
		CurrentOnly: currentOnly,
		UrgentOnly:  urgentOnly,
		BypassCache: noCache,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func printResponse(resp *searcher.Response) {
	if resp.Degraded != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s retrieval unavailable, results are partial\n", resp.Degraded)
	}
	if len(resp.Results) == 0 {
		fmt.Println("No results.")
		return
	}

	for _, r := range resp.Results {
		fmt.Printf("%2d. %s  (score %.3f)\n", r.Rank, r.Chunk.DocumentPath, r.FinalScore)
		if nav := r.Chunk.NavigationPath(); nav != "" {
			fmt.Printf("    %s  [lines %d-%d]\n", nav, r.Chunk.StartLine, r.Chunk.EndLine)
		}
		fmt.Printf("    %s\n", snippet(r.Chunk.Content, 160))
		if r.Intelligence.Status != "unknown" {
			fmt.Printf("    status=%s", r.Intelligence.Status)
			if r.Intelligence.Urgency > 0 {
				fmt.Printf(" urgency=%.1f", r.Intelligence.Urgency)
			}
			fmt.Println()
		}
	}

	cached := ""
	if resp.CacheHit {
		cached = " (cached)"
	}
	fmt.Printf("\n%d results in %s%s\n", resp.Total, resp.Duration.Round(timeRound), cached)
}

// snippet flattens content to a single line and truncates it for display.
func snippet(content string, max int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) <= max {
		return flat
	}
	return flat[:max] + "..."
}

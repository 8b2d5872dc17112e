package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/output"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var chunksPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics for a chunks file",
		Long: `Load a chunks file into the lexical index and print its statistics:
chunk and document counts, distinct terms, and average chunk length.

Examples:
  queryai stats --chunks corpus.json
  queryai stats --chunks corpus.json --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, chunksPath, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&chunksPath, "chunks", "c", "", "Path to a JSON chunks file (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")
	_ = cmd.MarkFlagRequired("chunks")

	return cmd
}

func runStats(cmd *cobra.Command, chunksPath string, jsonOutput bool) error {
	chunks, err := loadChunks(chunksPath)
	if err != nil {
		return err
	}

	idx := index.New()
	idx.AddBatch(chunks)
	stats := idx.Stats()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "Chunks: %d", stats.ChunkCount)
	out.Statusf("", "Documents: %d", stats.DocumentCount)
	out.Statusf("", "Distinct terms: %d", stats.TermCount)
	out.Status("", fmt.Sprintf("Average chunk length: %.1f terms", stats.AverageLength))
	return nil
}

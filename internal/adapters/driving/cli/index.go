package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show indexed chunks per company",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <record-id>",
	Short: "Remove a record and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

func init() {
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	stats, err := ingestService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}
	if len(stats) == 0 {
		cmd.Println("The index is empty.")
		return nil
	}

	ids := make([]string, 0, len(stats))
	total := 0
	for id, n := range stats {
		ids = append(ids, id)
		total += n
	}
	sort.Strings(ids)

	for _, id := range ids {
		cmd.Printf("%-30s %10s chunks\n", id, humanize.Comma(int64(stats[id])))
	}
	cmd.Printf("%-30s %10s chunks\n", "total", humanize.Comma(int64(total)))
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.RemoveRecord(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	cmd.Printf("Removed record %s\n", args[0])
	return nil
}

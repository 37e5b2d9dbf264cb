package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

var (
	searchLimit   int
	searchSources []string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <company> <query>",
	Short: "Search a company's knowledge base",
	Long: `Performs semantic search over the indexed chunks of one company.
Results never include content of other companies.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 10, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict to source types (linkedin, website, news, app_store, job_board)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{K: searchLimit}
	for _, s := range searchSources {
		source := domain.SourceType(strings.TrimSpace(s))
		if !source.IsValid() {
			return fmt.Errorf("unknown source type %q", s)
		}
		opts.SourceTypes = append(opts.SourceTypes, source)
	}

	results, err := searchService.Search(cmd.Context(), args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		// Format: [N] source URL (score)
		cmd.Printf("[%d] %s %s (%.3f)\n", i+1, headingStyle.Render(string(r.SourceType)), r.SourceURL, r.Score)
		cmd.Printf("    %s\n\n", snippet(r.Text, 200))
	}
	return nil
}

// snippet collapses whitespace and shortens text to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

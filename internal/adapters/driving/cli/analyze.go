package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

var (
	analyzeAll       bool
	analyzeJSON      bool
	analyzeOverwrite bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [company]",
	Short: "Generate an intelligence report for a company",
	Long: `Plan retrieval over the company's knowledge base, generate a structured
report with the configured LLM and validate it against the report schema.

Each run writes a new report version unless --overwrite is given. With --all,
every company with indexed content is analysed and a tally is printed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if analyzeAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "analyse every company with indexed content")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOverwrite, "overwrite", false, "replace the latest report version")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured (is an LLM provider set? see 'signalkb settings llm')")
	}

	opts := driving.AnalyzeOptions{Overwrite: analyzeOverwrite}
	if analyzeAll {
		return runAnalyzeAll(cmd, opts)
	}

	outcome, err := analysisService.Analyze(cmd.Context(), args[0], opts)
	if err != nil {
		var verr *domain.SchemaValidationError
		if errors.As(err, &verr) {
			printValidationFailure(cmd, verr, outcome)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return printJSON(cmd, outcome.Report)
	}
	renderReport(cmd.OutOrStdout(), outcome.Report, outcome.Path)
	return nil
}

func runAnalyzeAll(cmd *cobra.Command, opts driving.AnalyzeOptions) error {
	outcomes, err := analysisService.AnalyzeAll(cmd.Context(), opts)
	if len(outcomes) > 0 {
		renderAnalysisTally(cmd.OutOrStdout(), outcomes)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if len(outcomes) == 0 {
		cmd.Println("No companies with indexed content.")
		return nil
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(outcomes))
	}
	return nil
}

// printValidationFailure shows why generated output was rejected and the
// best-effort report, which is not saved.
func printValidationFailure(cmd *cobra.Command, verr *domain.SchemaValidationError, outcome *domain.AnalysisOutcome) {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Report failed validation after %d attempts:", verr.Attempts)))
	for _, p := range verr.Problems {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	if outcome == nil || outcome.Report == nil {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, warningStyle.Render("Best-effort report (not saved):"))
	renderReport(out, outcome.Report, "")
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

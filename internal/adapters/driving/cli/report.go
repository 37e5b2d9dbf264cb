package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/services"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect generated reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <company>",
	Short: "Show the latest report of a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write a CSV summary of the latest reports",
	Long: `Flatten the latest report of every company into one CSV row with a
summary and a confidence column per signal category. Unreadable reports are
skipped.`,
	Args: cobra.NoArgs,
	RunE: runReportSummary,
}

func init() {
	reportShowCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportList(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	infos, err := reportService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(infos) == 0 {
		cmd.Println("No reports yet. Run 'signalkb analyze <company>' first.")
		return nil
	}

	cmd.Printf("%-30s %-8s %-16s %s\n", "COMPANY", "VERSION", "GENERATED", "PATH")
	for _, info := range infos {
		cmd.Printf("%-30s %-8d %-16s %s\n", info.CompanyID, info.Version, formatTime(info.GeneratedAt), info.Path)
	}
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	report, err := reportService.Latest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	if reportJSON {
		return printJSON(cmd, report)
	}
	renderReport(cmd.OutOrStdout(), report, "")
	return nil
}

func runReportSummary(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	rows, err := reportService.Summarise(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to summarise reports: %w", err)
	}
	return services.WriteSummaryCSV(cmd.OutOrStdout(), rows)
}

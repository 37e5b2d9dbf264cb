// Package cli implements the signalkb command line.
//
// Commands talk to the core through the driving ports only. The ports are
// injected by main with SetServices; a command whose port is not configured
// fails with a "<name> service not configured" error.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

var (
	settingsService driving.SettingsService
	companyService  driving.CompanyService
	ingestService   driving.IngestService
	analysisService driving.AnalysisService
	reportService   driving.ReportService
	searchService   driving.SearchService
)

// Services holds the driving ports used by the commands.
type Services struct {
	Settings driving.SettingsService
	Company  driving.CompanyService
	Ingest   driving.IngestService
	Analysis driving.AnalysisService
	Report   driving.ReportService
	Search   driving.SearchService
}

// SetServices injects the driving ports. Nil ports leave the dependent
// commands unavailable.
func SetServices(s Services) {
	settingsService = s.Settings
	companyService = s.Company
	ingestService = s.Ingest
	analysisService = s.Analysis
	reportService = s.Report
	searchService = s.Search
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "signalkb",
	Short: "Company intelligence from scraped sources",
	Long: `signalkb builds a per-company knowledge base from scraped LinkedIn pages,
websites, news, app store listings and job postings, and turns it into
structured intelligence reports with a retrieval-augmented language model.

Typical flow:
  signalkb find-urls import registry.csv
  signalkb scrape-news news.jsonl
  signalkb analyze "Acme Finance"
  signalkb report summary > summary.csv`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline logs to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

var (
	companiesJSON      bool
	companyWebsite     string
	companyLinkedInURL string
)

var findURLsCmd = &cobra.Command{
	Use:   "find-urls",
	Short: "Manage the company registry produced by URL discovery",
}

var findURLsImportCmd = &cobra.Command{
	Use:   "import <registry.csv>",
	Short: "Import companies from a URL discovery CSV",
	Long: `Import the CSV written by the URL discovery stage into the company registry.

The file needs a "Company Name" column; "Website" and "LinkedIn URL" columns
are optional. Companies already registered are updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runFindURLsImport,
}

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List and register companies",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered companies",
	Args:  cobra.NoArgs,
	RunE:  runCompaniesList,
}

var companiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a single company",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompaniesAdd,
}

func init() {
	findURLsCmd.AddCommand(findURLsImportCmd)
	rootCmd.AddCommand(findURLsCmd)

	companiesListCmd.Flags().BoolVar(&companiesJSON, "json", false, "output companies as JSON")
	companiesAddCmd.Flags().StringVar(&companyWebsite, "website", "", "company homepage URL")
	companiesAddCmd.Flags().StringVar(&companyLinkedInURL, "linkedin", "", "company LinkedIn page URL")
	companiesCmd.AddCommand(companiesListCmd)
	companiesCmd.AddCommand(companiesAddCmd)
	rootCmd.AddCommand(companiesCmd)
}

func runFindURLsImport(cmd *cobra.Command, args []string) error {
	if companyService == nil {
		return errors.New("company service not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	n, err := companyService.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d companies from %s\n", n, args[0])
	return nil
}

func runCompaniesList(cmd *cobra.Command, _ []string) error {
	if companyService == nil {
		return errors.New("company service not configured")
	}

	companies, err := companyService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	if companiesJSON {
		data, err := json.MarshalIndent(companies, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal companies: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(companies) == 0 {
		cmd.Println("No companies registered. Run 'signalkb find-urls import <registry.csv>' first.")
		return nil
	}

	cmd.Printf("%-30s %-40s %s\n", "ID", "NAME", "WEBSITE")
	for i := range companies {
		c := &companies[i]
		website := c.WebsiteURL
		if website == "" {
			website = "-"
		}
		cmd.Printf("%-30s %-40s %s\n", c.ID, c.Name, website)
	}
	cmd.Printf("\n%d companies\n", len(companies))
	return nil
}

func runCompaniesAdd(cmd *cobra.Command, args []string) error {
	if companyService == nil {
		return errors.New("company service not configured")
	}

	company, err := companyService.Add(cmd.Context(), domain.Company{
		Name:        args[0],
		WebsiteURL:  companyWebsite,
		LinkedInURL: companyLinkedInURL,
	})
	if err != nil {
		return fmt.Errorf("failed to add company: %w", err)
	}

	cmd.Printf("Registered %s as %s\n", company.Name, company.ID)
	return nil
}

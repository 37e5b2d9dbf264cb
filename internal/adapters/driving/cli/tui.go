package cli

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse companies and reports interactively",
	Long: `Open the interactive terminal browser. Pick a company to read its latest
intelligence report, then search its knowledge base. Search needs an embedding
provider; the browser still opens without one.

Controls:
  ↑/k, ↓/j - Move / scroll
  Enter    - Open report / submit search
  /        - Search the selected company
  r        - Reload
  Esc      - Back
  ctrl+c   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	if companyService == nil {
		return errors.New("company service not configured")
	}
	if reportService == nil {
		return errors.New("report service not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("TUI panic: %v\n%s", r, debug.Stack())
		}
	}()

	app, err := tui.NewApp(&tui.Ports{
		Companies: companyService,
		Reports:   reportService,
		Search:    searchService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

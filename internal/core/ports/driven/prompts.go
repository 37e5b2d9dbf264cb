package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptReportSystem is the system prompt for report generation.
	// This prompt has no format placeholders.
	PromptReportSystem = "report_system"

	// PromptReportUser frames the evidence and schema for one company.
	// The template expects %s placeholders for company name, schema and context.
	PromptReportUser = "report_user"

	// PromptReportRepair is sent after output fails validation.
	// The template expects a %s placeholder for the list of problems.
	PromptReportRepair = "report_repair"
)

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// ReportGenerator turns a context bundle into a validated intelligence report.
// The generation backend is treated as unreliable: its output is parsed,
// checked against the schema and the bundle, and repaired by retrying.
type ReportGenerator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     domain.GenerationSettings
	now     func() time.Time
}

// NewReportGenerator creates a report generator.
func NewReportGenerator(llm driven.LLMService, prompts driven.PromptStore, cfg domain.GenerationSettings) *ReportGenerator {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = domain.DefaultAppSettings().Generation.SchemaVersion
	}
	return &ReportGenerator{
		llm:     llm,
		prompts: prompts,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Schema returns the output schema for the given categories.
func (g *ReportGenerator) Schema(categories []domain.SignalCategory) domain.ReportSchema {
	return domain.ReportSchema{Version: g.cfg.SchemaVersion, Categories: categories}
}

// Generate asks the backend for a report and validates it. Backend failures
// and timeouts wrap domain.ErrGeneration. Output that still fails validation
// after all retries is returned as *domain.SchemaValidationError carrying
// the raw output and the best-effort report.
func (g *ReportGenerator) Generate(
	ctx context.Context,
	bundle *domain.ContextBundle,
	schema domain.ReportSchema,
) (*domain.IntelligenceReport, error) {
	if g.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	system, err := g.prompts.Load(driven.PromptReportSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	userTpl, err := g.prompts.Load(driven.PromptReportUser)
	if err != nil {
		return nil, fmt.Errorf("load user prompt: %w", err)
	}
	repairTpl, err := g.prompts.Load(driven.PromptReportRepair)
	if err != nil {
		return nil, fmt.Errorf("load repair prompt: %w", err)
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(userTpl, bundle.CompanyName, schema.Describe(), RenderContext(bundle))},
	}
	opts := driven.ChatOptions{
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		JSON:        true,
	}

	attempts := g.cfg.MaxRetries + 1
	var (
		raw        string
		problems   []string
		bestEffort *domain.IntelligenceReport
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err = g.chat(ctx, messages, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: company %s attempt %d: %w", domain.ErrGeneration, bundle.CompanyID, attempt, err)
		}

		var report *domain.IntelligenceReport
		report, problems = validateOutput(raw, bundle, schema)
		if len(problems) == 0 {
			logger.Info("Report for %s validated on attempt %d", bundle.CompanyID, attempt)
			return g.finalise(report, bundle, schema), nil
		}

		if report != nil {
			bestEffort = report
		}
		logger.Warn("Attempt %d for %s failed validation: %s", attempt, bundle.CompanyID, strings.Join(problems, "; "))
		messages = append(messages,
			driven.ChatMessage{Role: driven.RoleAssistant, Content: raw},
			driven.ChatMessage{Role: driven.RoleUser, Content: fmt.Sprintf(repairTpl, "- "+strings.Join(problems, "\n- "))},
		)
	}

	verr := &domain.SchemaValidationError{
		CompanyID: bundle.CompanyID,
		Attempts:  attempts,
		Problems:  problems,
		Raw:       raw,
	}
	if bestEffort != nil {
		verr.BestEffort = g.finalise(bestEffort, bundle, schema)
	}
	return nil, verr
}

func (g *ReportGenerator) chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	return g.llm.Chat(ctx, messages, opts)
}

// finalise stamps identity onto a parsed report, forces no-evidence sections
// to their marker and collects the cited sources.
func (g *ReportGenerator) finalise(
	report *domain.IntelligenceReport,
	bundle *domain.ContextBundle,
	schema domain.ReportSchema,
) *domain.IntelligenceReport {
	report.ID = uuid.NewString()
	report.CompanyID = bundle.CompanyID
	report.CompanyName = bundle.CompanyName
	report.GeneratedAt = g.now().UTC()
	report.SchemaVersion = schema.Version
	report.Model = g.llm.ModelName()
	report.SectionOrder = make([]string, 0, len(schema.Categories))

	seen := make(map[string]bool)
	report.SourceCitations = []string{}
	for _, c := range schema.Categories {
		report.SectionOrder = append(report.SectionOrder, c.ID)

		if ev, ok := bundle.Evidence(c.ID); ok && ev.NoEvidence {
			report.Sections[c.ID] = domain.ReportSection{
				Category:   c.ID,
				Summary:    domain.NoEvidenceSummary,
				Findings:   []string{},
				Confidence: domain.ConfidenceNone,
				Citations:  []string{},
				NoEvidence: true,
			}
			continue
		}

		section, ok := report.Sections[c.ID]
		if !ok {
			continue
		}
		for _, id := range section.Citations {
			item, ok := bundle.Lookup(id)
			if !ok || seen[item.SourceURL] {
				continue
			}
			seen[item.SourceURL] = true
			report.SourceCitations = append(report.SourceCitations, item.SourceURL)
		}
	}
	return report
}

// excludedEvidence stands in for a category whose evidence did not fit the budget.
const excludedEvidence = "evidence found but left out of the context budget"

// RenderContext formats the bundle as the evidence block of the user prompt.
// Every item is introduced by its chunk id in square brackets. Shared chunks
// are referenced by id under every category after the one that holds them.
func RenderContext(bundle *domain.ContextBundle) string {
	var b strings.Builder
	for _, ev := range bundle.Categories {
		fmt.Fprintf(&b, "## %s (%s)\n", ev.Category.Name, ev.Category.ID)
		switch {
		case ev.NoEvidence:
			b.WriteString(domain.NoEvidenceSummary + "\n\n")
			continue
		case ev.Excluded():
			b.WriteString(excludedEvidence + "\n\n")
			continue
		}
		for _, item := range ev.Items {
			fmt.Fprintf(&b, "[%s] (%s, %s)\n%s\n\n", item.ChunkID, item.SourceType, item.SourceURL, item.Text)
		}
		if len(ev.Shared) > 0 {
			refs := make([]string, len(ev.Shared))
			for i, id := range ev.Shared {
				refs[i] = "[" + id + "]"
			}
			fmt.Fprintf(&b, "Also relevant: %s\n\n", strings.Join(refs, " "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// validateOutput parses backend output into a report and lists every
// schema or grounding problem. The report is nil when nothing parsed.
func validateOutput(
	raw string,
	bundle *domain.ContextBundle,
	schema domain.ReportSchema,
) (*domain.IntelligenceReport, []string) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(raw)), &top); err != nil {
		return nil, []string{fmt.Sprintf("output is not a JSON object: %v", err)}
	}

	sections := top
	if inner, ok := top["sections"]; ok {
		sections = nil
		if err := json.Unmarshal(inner, &sections); err != nil {
			return nil, []string{"\"sections\" must be an object keyed by category id"}
		}
	}

	report := &domain.IntelligenceReport{Sections: make(map[string]domain.ReportSection)}
	var problems []string
	for _, c := range schema.Categories {
		data, ok := sections[c.ID]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing section %q", c.ID))
			continue
		}
		ev, _ := bundle.Evidence(c.ID)
		section, sectionProblems := parseSection(c.ID, data, bundle, ev.NoEvidence)
		problems = append(problems, sectionProblems...)
		if section != nil {
			report.Sections[c.ID] = *section
		}
	}
	return report, problems
}

func parseSection(
	id string,
	data json.RawMessage,
	bundle *domain.ContextBundle,
	noEvidence bool,
) (*domain.ReportSection, []string) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, []string{fmt.Sprintf("section %q must be an object", id)}
	}

	var problems []string
	section := &domain.ReportSection{Category: id, NoEvidence: noEvidence, Findings: []string{}, Citations: []string{}}

	summary, ok := fields["summary"].(string)
	if !ok {
		problems = append(problems, fmt.Sprintf("section %q: summary must be a string", id))
	}
	section.Summary = summary

	conf, _ := fields["confidence"].(string)
	section.Confidence = domain.Confidence(strings.ToLower(strings.TrimSpace(conf)))
	if !section.Confidence.IsValid() {
		problems = append(problems, fmt.Sprintf("section %q: confidence must be one of high, medium, low, none", id))
	}

	if v, present := fields["findings"]; present && v != nil {
		findings, ok := stringSlice(v)
		if !ok {
			problems = append(problems, fmt.Sprintf("section %q: findings must be an array of strings", id))
		}
		section.Findings = findings
	}

	if v, present := fields["citations"]; present && v != nil {
		citations, ok := stringSlice(v)
		if !ok {
			problems = append(problems, fmt.Sprintf("section %q: citations must be an array of strings", id))
		}
		seen := make(map[string]bool)
		for _, c := range citations {
			c = strings.Trim(strings.TrimSpace(c), "[]")
			if seen[c] {
				continue
			}
			seen[c] = true
			if _, ok := bundle.Lookup(c); !ok {
				problems = append(problems, fmt.Sprintf("section %q cites unknown chunk %q", id, c))
				continue
			}
			section.Citations = append(section.Citations, c)
		}
	}

	switch {
	case noEvidence && (section.Confidence != domain.ConfidenceNone || len(section.Citations) > 0):
		problems = append(problems, fmt.Sprintf("section %q has no evidence: confidence must be none with no citations", id))
	case !noEvidence && section.Confidence.IsValid() && section.Confidence != domain.ConfidenceNone && len(section.Citations) == 0:
		problems = append(problems, fmt.Sprintf("section %q has confidence %s but cites no evidence", id, section.Confidence))
	}

	return section, problems
}

// stringSlice converts a decoded JSON array to strings, keeping the string
// elements when others are present.
func stringSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return []string{}, false
	}
	out := make([]string, 0, len(arr))
	valid := true
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			valid = false
			continue
		}
		out = append(out, s)
	}
	return out, valid
}

// extractJSON strips markdown code fences and surrounding prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

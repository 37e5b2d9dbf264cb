package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptReportSystem: `You are a venture capital analyst and investigative journalist covering financial institutions. You write evidence-based company intelligence reports.

Rules:
- Use only the evidence provided. Never rely on outside knowledge.
- Every claim must be supported by evidence; cite it with the chunk_id shown in square brackets.
- If a category has no evidence, set its summary to "no evidence found", its confidence to "none" and leave citations empty.
- Evidence listed under "Also relevant" was shown under an earlier category; cite it by the same chunk_id.
- If a category's evidence was left out of the context budget, say so in its summary and set its confidence to "low".
- Confidence is "high" when several independent pieces of evidence agree, "medium" when one clear piece supports it, "low" when the evidence is indirect.
- Return a single JSON object matching the schema. Do not include explanations or markdown.`,

	driven.PromptReportUser: `Company: %s

Required output schema:
%s

Evidence retrieved from the knowledge base, grouped by category:
%s`,

	driven.PromptReportRepair: `Your previous answer did not match the required schema. Problems found:
%s

Return the complete corrected JSON object only.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.signalkb/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".signalkb", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Falls back to the embedded default if the file is missing or has lost
// its format placeholders.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err == nil && !placeholdersMatch(name, prompt) {
		err = fmt.Errorf("prompt %q has %d placeholders, expected %d",
			name, strings.Count(prompt, "%s"), strings.Count(defaultPrompts[name], "%s"))
	}
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// placeholdersMatch reports whether an edited template keeps the %s count
// of its default. Prompts without a default are accepted as is.
func placeholdersMatch(name, prompt string) bool {
	def, ok := defaultPrompts[name]
	if !ok {
		return true
	}
	return strings.Count(prompt, "%s") == strings.Count(def, "%s")
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# signalkb prompts

These files drive report generation. Edit them to change tone or emphasis;
changes apply on the next analyze run.

## Files

- ` + "`report_system.txt`" + ` - Analyst persona and evidence rules
- ` + "`report_user.txt`" + ` - Company, schema and evidence (three ` + "`%s`" + ` placeholders, in that order)
- ` + "`report_repair.txt`" + ` - Sent when output fails validation (one ` + "`%s`" + ` for the problem list)

A file whose placeholder count no longer matches is ignored and the built-in
default is used instead.
`
	return os.WriteFile(path, []byte(content), 0600)
}

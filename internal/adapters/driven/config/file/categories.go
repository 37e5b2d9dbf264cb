package file

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure CategoryCatalog implements the interface.
var _ driven.CategoryCatalog = (*CategoryCatalog)(nil)

// CategoryCatalog supplies signal categories from a YAML file layered over
// the built-in defaults. Entries whose id matches a default replace it; new
// ids are appended. With replace: true the defaults are dropped.
//
//	replace: false
//	categories:
//	  - id: esg
//	    name: ESG
//	    description: Sustainability commitments and green finance.
//	    queries: ["{company} sustainability", "{company} green bonds"]
//	    source_types: [news, website]
type CategoryCatalog struct {
	path string
}

type categoryFile struct {
	Replace    bool                    `yaml:"replace"`
	Categories []domain.SignalCategory `yaml:"categories"`
}

// NewCategoryCatalog creates a catalog reading path. An empty path or a
// missing file yields the defaults.
func NewCategoryCatalog(path string) *CategoryCatalog {
	return &CategoryCatalog{path: path}
}

// Categories returns the effective categories in report order.
func (c *CategoryCatalog) Categories() ([]domain.SignalCategory, error) {
	defaults := domain.DefaultSignalCategories()
	if c.path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, fmt.Errorf("read categories: %w", err)
	}

	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, c.path, err)
	}

	for i, cat := range file.Categories {
		if err := validateCategory(cat); err != nil {
			return nil, fmt.Errorf("%w: %s category %d: %v", domain.ErrInvalidInput, c.path, i+1, err)
		}
	}

	if file.Replace {
		if len(file.Categories) == 0 {
			return nil, fmt.Errorf("%w: %s replaces the defaults with no categories", domain.ErrInvalidInput, c.path)
		}
		return file.Categories, nil
	}
	return mergeCategories(defaults, file.Categories), nil
}

func validateCategory(c domain.SignalCategory) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if len(c.RenderQueries("x")) == 0 {
		return fmt.Errorf("%s: at least one query is required", c.ID)
	}
	for _, s := range c.SourceTypes {
		if !s.IsValid() {
			return fmt.Errorf("%s: unknown source type %q", c.ID, s)
		}
	}
	return nil
}

func mergeCategories(base, overrides []domain.SignalCategory) []domain.SignalCategory {
	out := make([]domain.SignalCategory, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, c := range out {
		index[c.ID] = i
	}
	for _, c := range overrides {
		if c.Name == "" {
			c.Name = c.ID
		}
		if i, ok := index[c.ID]; ok {
			out[i] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

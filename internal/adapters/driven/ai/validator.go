package ai

import (
	"fmt"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations before they are saved.
type ConfigValidator struct {
	dataDir string
}

// NewConfigValidator creates a validator. dataDir locates downloaded models.
func NewConfigValidator(dataDir string) *ConfigValidator {
	return &ConfigValidator{dataDir: dataDir}
}

// ValidateEmbedding checks that the model has a known vector size and, for
// remote providers, that the service answers.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	if config.Dimensions == 0 && domain.EmbeddingDimensions()[config.Model] == 0 &&
		config.Provider != domain.AIProviderHashing {
		return fmt.Errorf("unknown vector size for model %q: set embedding.dimensions", config.Model)
	}

	svc, err := CreateAndValidateEmbeddingService(config, v.dataDir)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	svc, err := CreateAndValidateLLMService(config)
	if err != nil {
		return err
	}
	return svc.Close()
}

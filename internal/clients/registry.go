package clients

import (
	"fmt"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

// NewProvider builds the adapter selected by desc.Kind.
func NewProvider(desc models.ProviderDescriptor) (Provider, error) {
	if desc.Name == "" {
		desc.Name = string(desc.Kind)
	}
	switch desc.Kind {
	case models.ProviderKindClaude:
		return NewClaudeClient(desc), nil
	case models.ProviderKindOpenAI:
		return NewOpenAIClient(desc), nil
	case models.ProviderKindGoogle:
		return NewGoogleClient(desc), nil
	}
	return nil, fmt.Errorf("unsupported provider kind %q for provider %q", desc.Kind, desc.Name)
}

// NewProviders builds adapters for every descriptor that has a credential.
// Descriptors without an API key are skipped: such a provider is simply absent.
func NewProviders(descs []models.ProviderDescriptor) ([]Provider, error) {
	providers := make([]Provider, 0, len(descs))
	for _, desc := range descs {
		if desc.APIKey == "" {
			logger.Warningf("⚠️ %s API key not configured, provider disabled", desc.Name)
			continue
		}
		p, err := NewProvider(desc)
		if err != nil {
			return nil, err
		}
		logger.Infof("🤖 AI provider registered: %s (%s, default model %s)", p.Name(), desc.Kind, desc.DefaultModel)
		providers = append(providers, p)
	}
	return providers, nil
}
